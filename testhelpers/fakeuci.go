package testhelpers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FakeEngineEnv holds a JSON encoded FakeEngine. A test binary that finds it
// set acts as that engine instead of running tests, so the real UCI adapter
// can be exercised against os.Executable().
const FakeEngineEnv = "EPDBENCH_FAKE_ENGINE"

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FakeEngine is a tiny UCI engine that answers from a table.
type FakeEngine struct {
	Name string `json:"name"`
	// Moves maps a FEN (move counters ignored) to the move to play. A
	// missing or empty entry makes the engine report no line.
	Moves map[string]string `json:"moves"`
	// Options are advertised as spin options besides BestMove, a string
	// option that forces the move played.
	Options []string `json:"options"`
	// ExitAfter makes the process die on its ExitAfter-th "go", before
	// answering. Zero never exits.
	ExitAfter int `json:"exit_after,omitempty"`
	// ExitAtStart makes the process exit before reading anything.
	ExitAtStart bool `json:"exit_at_start,omitempty"`
	// Silent reads commands and never answers.
	Silent bool `json:"silent,omitempty"`
}

// ExitCode is the status of a FakeEngine dying on ExitAfter.
const ExitCode = 3

var errCrash = errors.New("fake engine crashed")

// Env encodes the engine for FakeEngineEnv.
func (f FakeEngine) Env() string {
	bts, err := json.Marshal(f)
	if err != nil {
		panic(err)
	}
	return string(bts)
}

// MaybeRunFakeEngine turns the current process into a FakeEngine when
// FakeEngineEnv is set. Call it first thing in TestMain.
func MaybeRunFakeEngine() {
	raw := os.Getenv(FakeEngineEnv)
	if raw == "" {
		return
	}
	var f FakeEngine
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if f.ExitAtStart {
		os.Exit(1)
	}
	err := f.Serve(os.Stdin, os.Stdout)
	switch {
	case errors.Is(err, errCrash):
		os.Exit(ExitCode)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Serve speaks UCI on r/w until "quit" or end of input.
func (f FakeEngine) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	forced := ""
	current := positionKey(StartFEN)
	searches := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if f.Silent {
			continue
		}
		switch {
		case line == "uci":
			fmt.Fprintf(w, "id name %s\n", f.Name)
			fmt.Fprintln(w, "id author epdbench")
			fmt.Fprintln(w, "option name BestMove type string default <empty>")
			for _, o := range f.Options {
				fmt.Fprintf(w, "option name %s type spin default 1 min 1 max 1024\n", o)
			}
			fmt.Fprintln(w, "uciok")
		case line == "isready":
			fmt.Fprintln(w, "readyok")
		case strings.HasPrefix(line, "setoption name "):
			name, value, _ := strings.Cut(strings.TrimPrefix(line, "setoption name "), " value ")
			if name == "BestMove" {
				forced = strings.TrimSpace(value)
			}
		case strings.HasPrefix(line, "position startpos"):
			current = positionKey(StartFEN)
		case strings.HasPrefix(line, "position fen "):
			fen, _, _ := strings.Cut(strings.TrimPrefix(line, "position fen "), " moves ")
			current = positionKey(fen)
		case strings.HasPrefix(line, "go"):
			searches++
			if searches == f.ExitAfter {
				return errCrash
			}
			mv := forced
			if mv == "" {
				mv = f.Moves[current]
			}
			if mv == "" {
				fmt.Fprintln(w, "info depth 1 score cp 0 nodes 1")
				fmt.Fprintln(w, "bestmove (none)")
				continue
			}
			fmt.Fprintf(w, "info depth 1 seldepth 1 score cp 12 nodes 42 time 1 pv %s\n", mv)
			// Real engines report statistics after the last line.
			fmt.Fprintln(w, "info nodes 100 nps 2000 time 5")
			fmt.Fprintln(w, "info string pv a1a1 not a line")
			fmt.Fprintf(w, "bestmove %s\n", mv)
		case line == "quit":
			return nil
		}
	}
	return scanner.Err()
}

// positionKey drops the move counters of a FEN.
func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// NewFakeEngine builds a FakeEngine keyed by full FENs.
func NewFakeEngine(name string, moves map[string]string, options ...string) FakeEngine {
	keyed := make(map[string]string, len(moves))
	for fen, mv := range moves {
		keyed[positionKey(fen)] = mv
	}
	return FakeEngine{Name: name, Moves: keyed, Options: options}
}
