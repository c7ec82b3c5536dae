package engine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/epdbench/engine"
	"github.com/domino14/epdbench/testhelpers"
)

const (
	italianFEN = "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3"
	openFEN    = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
)

func TestMain(m *testing.M) {
	testhelpers.MaybeRunFakeEngine()
	os.Exit(m.Run())
}

func fakeEngine(t *testing.T) string {
	t.Helper()
	return runAs(t, defaultFake())
}

func defaultFake() testhelpers.FakeEngine {
	return testhelpers.NewFakeEngine("Fake Engine 1.0", map[string]string{
		testhelpers.StartFEN: "e2e4",
		italianFEN:           "g8f6",
	}, "Hash", "Threads")
}

// runAs makes the test binary act as fake when started as an engine.
func runAs(t *testing.T, fake testhelpers.FakeEngine) string {
	t.Helper()
	t.Setenv(testhelpers.FakeEngineEnv, fake.Env())
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	return exe
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return zerolog.Nop().WithContext(ctx)
}

func TestUCIAdapterEvaluate(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: fakeEngine(t)}, 1)
	is.NoErr(err)
	defer a.Shutdown()
	is.Equal(a.Name(), "Fake Engine 1.0")

	mv, err := a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, "e2e4")

	mv, err = a.Evaluate(ctx, italianFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, "g8f6")

	// No principal variation.
	mv, err = a.Evaluate(ctx, openFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, engine.NoMove)

	// Unloadable position.
	mv, err = a.Evaluate(ctx, "not a fen", 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, engine.NoMove)
}

func TestUCIAdapterConfigure(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: fakeEngine(t)}, 1)
	is.NoErr(err)
	defer a.Shutdown()

	err = a.Configure(ctx, []string{
		"Hash=64",
		"bogus",
		"NoSuchOption=3",
		"bestmove=d2d4", // option names are case insensitive
	})
	is.NoErr(err)

	mv, err := a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, "d2d4")
}

func TestUCIAdapterShutdown(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: fakeEngine(t)}, 1)
	is.NoErr(err)

	first := a.Shutdown()
	is.Equal(a.Shutdown(), first)

	_, err = a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.True(errors.Is(err, engine.ErrEngineClosed))
	is.True(errors.Is(a.Configure(ctx, []string{"Hash=1"}), engine.ErrEngineClosed))
}

func TestUCIAdapterTranscript(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)
	dir := t.TempDir()

	factory := engine.NewUCIFactory(engine.UCIConfig{
		Path:          fakeEngine(t),
		EngineName:    "Fake Engine",
		Transcripts:   true,
		TranscriptDir: dir,
	})
	a, err := factory(ctx, 3)
	is.NoErr(err)
	_, err = a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	a.Shutdown()

	bts, err := os.ReadFile(filepath.Join(dir, "Fake_Engine_analysis_worker_3.txt"))
	is.NoErr(err)
	is.True(strings.Contains(string(bts), "bestmove e2e4"))
}

func TestDiscoverName(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	name, err := engine.DiscoverName(ctx, fakeEngine(t))
	is.NoErr(err)
	is.Equal(name, "Fake Engine 1.0")

	_, err = engine.DiscoverName(ctx, filepath.Join(t.TempDir(), "no-such-engine"))
	is.True(err != nil)
}

func TestDiscoverNameEngineExitsAtStart(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	fake := defaultFake()
	fake.ExitAtStart = true
	path := runAs(t, fake)

	begin := time.Now()
	_, err := engine.DiscoverNameWith(ctx, engine.UCIConfig{Path: path, StartTimeout: 5 * time.Second})
	is.True(errors.Is(err, engine.ErrEngineExited))
	is.True(time.Since(begin) < 5*time.Second) // noticed by the exit, not the deadline
}

func TestStartUCISilentEngine(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	fake := defaultFake()
	fake.Silent = true
	path := runAs(t, fake)

	_, err := engine.StartUCI(ctx, engine.UCIConfig{
		Path:          path,
		StartAttempts: 2,
		StartDelay:    time.Millisecond,
		StartTimeout:  100 * time.Millisecond,
		ShutdownGrace: time.Second,
	}, 1)
	is.True(errors.Is(err, engine.ErrEngineTimeout))
}

func TestUCIAdapterKeepsLineAcrossTrailingInfo(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	// Every answer of the fake engine ends with statistics and a string
	// info after the pv line.
	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: fakeEngine(t)}, 1)
	is.NoErr(err)
	defer a.Shutdown()

	for i := 0; i < 3; i++ {
		mv, err := a.Evaluate(ctx, italianFEN, 10*time.Millisecond)
		is.NoErr(err)
		is.Equal(mv, "g8f6")
	}
}

func TestUCIAdapterIllegalLine(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	fake := defaultFake()
	fake.Moves = map[string]string{}
	path := runAs(t, fake)
	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: path}, 1)
	is.NoErr(err)
	defer a.Shutdown()

	is.NoErr(a.Configure(ctx, []string{"BestMove=e7e5"})) // black pawn, white to move
	mv, err := a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, engine.NoMove)
}

func TestUCIAdapterEngineExitsMidSearch(t *testing.T) {
	is := is.New(t)
	ctx := testContext(t)

	fake := defaultFake()
	fake.ExitAfter = 2
	path := runAs(t, fake)
	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: path, SearchGrace: 5 * time.Second}, 1)
	is.NoErr(err)

	mv, err := a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.Equal(mv, "e2e4")

	begin := time.Now()
	mv, err = a.Evaluate(ctx, italianFEN, 10*time.Millisecond)
	is.True(errors.Is(err, engine.ErrEngineExited))
	is.Equal(mv, engine.NoMove)
	is.True(time.Since(begin) < 5*time.Second)

	// The adapter is unusable afterwards, and shutting it down still works.
	_, err = a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.True(errors.Is(err, engine.ErrEngineClosed))
	is.NoErr(a.Shutdown())
}

func TestUCIAdapterDebugProtocolLog(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	logger := zerolog.New(zerolog.SyncWriter(&buf)).Level(zerolog.DebugLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logger.WithContext(ctx)

	a, err := engine.StartUCI(ctx, engine.UCIConfig{Path: fakeEngine(t)}, 1)
	is.NoErr(err)
	_, err = a.Evaluate(ctx, testhelpers.StartFEN, 10*time.Millisecond)
	is.NoErr(err)
	is.NoErr(a.Shutdown())

	out := buf.String()
	is.True(strings.Contains(out, `"message":"uciok"`))
	is.True(strings.Contains(out, `"message":"go movetime 10"`))
	is.True(strings.Contains(out, `"message":"bestmove e2e4"`))
}
