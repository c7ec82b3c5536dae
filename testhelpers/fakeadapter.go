package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/domino14/epdbench/engine"
)

// FakeAdapter is a scripted engine.Adapter.
type FakeAdapter struct {
	WorkerID int
	Moves    map[string]string
	// FailAt makes Evaluate return the error for that FEN.
	FailAt map[string]error
	// PanicAt makes Evaluate panic with the value for that FEN.
	PanicAt map[string]string

	mu        sync.Mutex
	options   map[string]string
	evaluated []string
	shutdowns int
}

func (f *FakeAdapter) Configure(ctx context.Context, options []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.options == nil {
		f.options = map[string]string{}
	}
	for _, o := range options {
		name, value, err := engine.ParseOption(o)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Str("option", o).Msg("ignoring invalid option format, use Name=Value")
			continue
		}
		f.options[name] = value
	}
	return nil
}

func (f *FakeAdapter) Evaluate(ctx context.Context, fen string, budget time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shutdowns > 0 {
		return engine.NoMove, engine.ErrEngineClosed
	}
	if err := f.FailAt[fen]; err != nil {
		return engine.NoMove, err
	}
	if msg, ok := f.PanicAt[fen]; ok {
		panic(msg)
	}
	f.evaluated = append(f.evaluated, fen)
	return f.Moves[fen], nil
}

func (f *FakeAdapter) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

// Options returns the options applied through Configure.
func (f *FakeAdapter) Options() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options
}

// Evaluated lists the FENs searched, in order.
func (f *FakeAdapter) Evaluated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.evaluated...)
}

func (f *FakeAdapter) Shutdowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// FakeFactory hands out FakeAdapters sharing one move table and remembers
// them by worker id.
type FakeFactory struct {
	Moves   map[string]string
	FailAt  map[string]error
	PanicAt map[string]string
	// StartErr makes the factory fail for a worker id.
	StartErr map[int]error

	mu       sync.Mutex
	adapters map[int]*FakeAdapter
}

func (ff *FakeFactory) Factory() engine.Factory {
	return func(ctx context.Context, workerID int) (engine.Adapter, error) {
		ff.mu.Lock()
		defer ff.mu.Unlock()
		if err := ff.StartErr[workerID]; err != nil {
			return nil, err
		}
		if ff.adapters == nil {
			ff.adapters = map[int]*FakeAdapter{}
		}
		a := &FakeAdapter{WorkerID: workerID, Moves: ff.Moves, FailAt: ff.FailAt, PanicAt: ff.PanicAt}
		ff.adapters[workerID] = a
		return a, nil
	}
}

// Adapters returns the adapters created so far, by worker id.
func (ff *FakeFactory) Adapters() map[int]*FakeAdapter {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	out := make(map[int]*FakeAdapter, len(ff.adapters))
	for k, v := range ff.adapters {
		out[k] = v
	}
	return out
}
