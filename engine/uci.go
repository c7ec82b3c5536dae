package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	defaultStartAttempts = 2
	defaultStartDelay    = 500 * time.Millisecond
	defaultStartTimeout  = 10 * time.Second
	defaultSearchGrace   = 10 * time.Second
	defaultShutdownGrace = 5 * time.Second

	maxLineLength = 1 << 20
	lineBacklog   = 256
)

var (
	// ErrEngineExited means the engine process went away, or closed its
	// output, while it was expected to answer.
	ErrEngineExited = errors.New("engine process exited")
	// ErrEngineTimeout means the engine did not answer in time.
	ErrEngineTimeout = errors.New("engine did not answer in time")

	errShutdownTimeout = errors.New("engine did not quit in time")
)

// UCIConfig describes how workers start their engines.
type UCIConfig struct {
	Path string
	// EngineName is only used to name transcript files.
	EngineName    string
	Transcripts   bool
	TranscriptDir string
	StartAttempts int
	StartDelay    time.Duration
	// StartTimeout bounds the uci/isready handshakes.
	StartTimeout time.Duration
	// SearchGrace is how long past its budget a search may run before the
	// engine is given up on.
	SearchGrace   time.Duration
	ShutdownGrace time.Duration
}

func (cfg UCIConfig) withDefaults() UCIConfig {
	if cfg.StartAttempts < 1 {
		cfg.StartAttempts = defaultStartAttempts
	}
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = defaultStartDelay
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.SearchGrace <= 0 {
		cfg.SearchGrace = defaultSearchGrace
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	return cfg
}

// UCIAdapter drives one UCI engine process over its standard input and
// output. Every wait for the engine is bounded by a deadline, by the
// context and by the process itself: when it exits, its output closes and
// any pending wait fails with ErrEngineExited.
type UCIAdapter struct {
	cfg    UCIConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger zerolog.Logger
	// proto receives every line exchanged with the engine, at protoLevel.
	proto      zerolog.Logger
	protoLevel zerolog.Level

	lines   chan string
	done    chan struct{}
	exited  chan struct{}
	waitErr error

	name    string
	options map[string]string
	closers []io.Closer

	mu       sync.Mutex
	dead     bool
	once     sync.Once
	closeErr error
}

// NewUCIFactory returns a Factory starting one engine per worker. The
// logger found in the worker's context is used for engine diagnostics.
func NewUCIFactory(cfg UCIConfig) Factory {
	return func(ctx context.Context, workerID int) (Adapter, error) {
		return StartUCI(ctx, cfg, workerID)
	}
}

// StartUCI spawns the engine and completes the uci/isready handshake,
// retrying the whole start up to cfg.StartAttempts times. An executable
// that cannot be spawned is not retried.
func StartUCI(ctx context.Context, cfg UCIConfig, workerID int) (*UCIAdapter, error) {
	cfg = cfg.withDefaults()
	logger := zerolog.Ctx(ctx).With().Str("engine", cfg.Path).Logger()

	proto, protoLevel := logger, zerolog.DebugLevel
	var transcript io.Closer
	if cfg.Transcripts {
		f, l, err := openTranscript(TranscriptPath(cfg.TranscriptDir, cfg.EngineName, workerID), workerID)
		if err != nil {
			return nil, fmt.Errorf("opening transcript: %w", err)
		}
		transcript = f
		proto, protoLevel = l, zerolog.NoLevel
	}

	var a *UCIAdapter
	err := retry.Do(
		func() error {
			candidate, err := spawn(cfg, logger, proto, protoLevel)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if err := candidate.handshake(ctx); err != nil {
				candidate.Shutdown()
				return err
			}
			a = candidate
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(cfg.StartAttempts)),
		retry.Delay(cfg.StartDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Msg("engine-start-failed")
		}),
	)
	if err != nil {
		if transcript != nil {
			transcript.Close()
		}
		return nil, fmt.Errorf("starting engine %s: %w", cfg.Path, err)
	}
	a.own(transcript)
	logger.Debug().Str("name", a.name).Int("options", len(a.options)).Msg("engine-ready")
	return a, nil
}

func spawn(cfg UCIConfig, logger, proto zerolog.Logger, protoLevel zerolog.Level) (*UCIAdapter, error) {
	cmd := exec.Command(cfg.Path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	a := &UCIAdapter{
		cfg:        cfg,
		cmd:        cmd,
		stdin:      stdin,
		logger:     logger,
		proto:      proto,
		protoLevel: protoLevel,
		lines:      make(chan string, lineBacklog),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		options:    map[string]string{},
	}
	go a.readLoop(stdout)
	return a, nil
}

// readLoop forwards engine output line by line until the engine closes it,
// then reaps the process. After Shutdown output is read and dropped so the
// engine never blocks on a full pipe.
func (a *UCIAdapter) readLoop(stdout io.Reader) {
	defer close(a.exited)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	deliver := true
	for scanner.Scan() {
		line := scanner.Text()
		a.proto.WithLevel(a.protoLevel).Str("dir", "<").Msg(line)
		if !deliver {
			continue
		}
		select {
		case a.lines <- line:
		case <-a.done:
			deliver = false
		}
	}
	close(a.lines)
	a.waitErr = a.cmd.Wait()
}

// own registers c to be closed by Shutdown.
func (a *UCIAdapter) own(c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, c)
}

// Name is the engine's self-reported name.
func (a *UCIAdapter) Name() string {
	return a.name
}

func (a *UCIAdapter) handshake(ctx context.Context) error {
	if err := a.send("uci"); err != nil {
		return err
	}
	err := a.expect(ctx, a.cfg.StartTimeout, func(line string) bool {
		switch {
		case strings.HasPrefix(line, "id name "):
			a.name = strings.TrimSpace(strings.TrimPrefix(line, "id name "))
		case strings.HasPrefix(line, "option name "):
			if name := optionName(line); name != "" {
				a.options[strings.ToLower(name)] = name
			}
		case strings.TrimSpace(line) == "uciok":
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	return a.sync(ctx)
}

// sync sends isready and waits for readyok.
func (a *UCIAdapter) sync(ctx context.Context) error {
	if err := a.send("isready"); err != nil {
		return err
	}
	err := a.expect(ctx, a.cfg.StartTimeout, func(line string) bool {
		return strings.TrimSpace(line) == "readyok"
	})
	if err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// optionName extracts the name from "option name <name> type <type> ...".
// Names may contain spaces.
func optionName(line string) string {
	rest := strings.TrimPrefix(line, "option name ")
	name, _, _ := strings.Cut(rest, " type ")
	return strings.TrimSpace(name)
}

func (a *UCIAdapter) Configure(ctx context.Context, options []string) error {
	logger := zerolog.Ctx(ctx)
	if a.isDead() {
		return ErrEngineClosed
	}
	applied := 0
	for _, raw := range options {
		name, value, err := ParseOption(raw)
		if err != nil {
			logger.Warn().Str("option", raw).Msg("ignoring invalid option format, use Name=Value")
			continue
		}
		// UCI option names are case insensitive.
		canonical, ok := a.options[strings.ToLower(name)]
		if !ok {
			logger.Warn().Str("option", name).Msg("engine does not support option, keeping its default")
			continue
		}
		if err := a.send(fmt.Sprintf("setoption name %s value %s", canonical, value)); err != nil {
			return fmt.Errorf("setting option %s: %w", canonical, err)
		}
		applied++
		logger.Debug().Str("option", canonical).Str("value", value).Msg("set-option")
	}
	if applied > 0 {
		if err := a.sync(ctx); err != nil {
			return fmt.Errorf("after setting options: %w", err)
		}
	}
	return nil
}

func (a *UCIAdapter) Evaluate(ctx context.Context, fen string, budget time.Duration) (string, error) {
	logger := zerolog.Ctx(ctx)
	if a.isDead() {
		return NoMove, ErrEngineClosed
	}
	fenOpt, err := chess.FEN(fen)
	if err != nil {
		logger.Debug().Err(err).Str("fen", fen).Msg("cannot load position")
		return NoMove, nil
	}
	pos := chess.NewGame(fenOpt).Position()

	// A fresh game per position, so no search state leaks between tests.
	if err := a.send("ucinewgame"); err != nil {
		return NoMove, err
	}
	if err := a.sync(ctx); err != nil {
		return NoMove, err
	}
	if err := a.send("position fen " + fen); err != nil {
		return NoMove, err
	}
	if err := a.send(fmt.Sprintf("go movetime %d", max(budget.Milliseconds(), 1))); err != nil {
		return NoMove, err
	}

	// The line played is the last pv reported. Info lines without a pv do
	// not reset it.
	pv := ""
	err = a.expect(ctx, budget+a.cfg.SearchGrace, func(line string) bool {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return false
		}
		switch fields[0] {
		case "info":
			if mv := pvMove(fields); mv != "" {
				pv = mv
			}
		case "bestmove":
			return true
		}
		return false
	})
	if err != nil {
		return NoMove, fmt.Errorf("searching %q: %w", fen, err)
	}
	if pv == "" {
		return NoMove, nil
	}
	legal := lo.ContainsBy(pos.ValidMoves(), func(m *chess.Move) bool {
		return m.String() == pv
	})
	if !legal {
		logger.Debug().Str("fen", fen).Str("pv", pv).Msg("engine returned an illegal move")
		return NoMove, nil
	}
	return pv, nil
}

// pvMove returns the first move after "pv" in the fields of an info line.
// Everything after "string" is free text.
func pvMove(fields []string) string {
	for i, f := range fields {
		switch f {
		case "string":
			return ""
		case "pv":
			if i+1 < len(fields) {
				return fields[i+1]
			}
			return ""
		}
	}
	return ""
}

// send writes one command line. A failed write means the engine is gone.
func (a *UCIAdapter) send(cmd string) error {
	a.proto.WithLevel(a.protoLevel).Str("dir", ">").Msg(cmd)
	if _, err := io.WriteString(a.stdin, cmd+"\n"); err != nil {
		a.markDead()
		return fmt.Errorf("%w: %v", ErrEngineExited, err)
	}
	return nil
}

// expect feeds engine output to handle until it returns true. Any failure
// to get there leaves the engine in an unknown state, so the adapter is
// marked unusable.
func (a *UCIAdapter) expect(ctx context.Context, timeout time.Duration, handle func(line string) bool) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-a.lines:
			if !ok {
				a.markDead()
				return a.exitError()
			}
			if handle(line) {
				return nil
			}
		case <-timer.C:
			a.markDead()
			return fmt.Errorf("%w after %v", ErrEngineTimeout, timeout)
		case <-ctx.Done():
			a.markDead()
			return ctx.Err()
		}
	}
}

func (a *UCIAdapter) exitError() error {
	select {
	case <-a.exited:
		if a.waitErr != nil {
			return fmt.Errorf("%w: %v", ErrEngineExited, a.waitErr)
		}
	case <-time.After(time.Second):
	}
	return ErrEngineExited
}

func (a *UCIAdapter) markDead() {
	a.mu.Lock()
	a.dead = true
	a.mu.Unlock()
}

func (a *UCIAdapter) isDead() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dead
}

// Shutdown asks the engine to quit and kills it when it does not within
// the grace period.
func (a *UCIAdapter) Shutdown() error {
	a.once.Do(func() {
		a.markDead()
		close(a.done)
		io.WriteString(a.stdin, "quit\n")
		a.stdin.Close()
		select {
		case <-a.exited:
		case <-time.After(a.cfg.ShutdownGrace):
			a.logger.Warn().Msg("engine did not quit, killing it")
			a.cmd.Process.Kill()
			a.closeErr = errShutdownTimeout
			select {
			case <-a.exited:
			case <-time.After(a.cfg.ShutdownGrace):
				a.logger.Error().Msg("engine output still open after kill, abandoning it")
			}
		}
		for _, c := range a.closers {
			if err := c.Close(); err != nil && a.closeErr == nil {
				a.closeErr = err
			}
		}
	})
	return a.closeErr
}

// DiscoverName starts the engine once to read its "id name". An engine
// that exits or does not complete the handshake in time is an error.
func DiscoverName(ctx context.Context, path string) (string, error) {
	return DiscoverNameWith(ctx, UCIConfig{Path: path})
}

// DiscoverNameWith is DiscoverName with explicit start settings.
func DiscoverNameWith(ctx context.Context, cfg UCIConfig) (string, error) {
	cfg.StartAttempts = 1
	cfg.Transcripts = false
	a, err := StartUCI(ctx, cfg, 0)
	if err != nil {
		return "", err
	}
	defer a.Shutdown()
	if a.Name() == "" {
		return "", fmt.Errorf("engine %s did not report a name", cfg.Path)
	}
	return a.Name(), nil
}
