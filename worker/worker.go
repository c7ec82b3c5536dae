// Package worker runs a suite's positions across several engine processes.
// Positions are cut into contiguous chunks up front; each chunk is owned by
// exactly one worker with its own engine, and results are merged as the
// workers finish.
package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/domino14/epdbench/engine"
)

// AnalysisResult maps a FEN to the move the engine chose, engine.NoMove
// when it chose none. Positions never evaluated are absent.
type AnalysisResult map[string]string

// Dispatcher analyzes positions with a fixed pool of engine workers.
type Dispatcher struct {
	cfg     Config
	factory engine.Factory
}

// NewDispatcher creates a dispatcher starting engines through factory.
func NewDispatcher(cfg Config, factory engine.Factory) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Dispatcher{cfg: cfg, factory: factory}
}

type partial struct {
	moves  map[string]string
	report ChunkReport
}

// Run evaluates fens and returns the merged moves along with one report per
// non-empty chunk, ordered by worker. A failing chunk never affects the
// others and there is no retry, so the result may be incomplete.
func (d *Dispatcher) Run(ctx context.Context, fens []string) (AnalysisResult, []ChunkReport) {
	logger := zerolog.Ctx(ctx)
	chunks := Chunks(fens, d.cfg.Workers)

	logger.Info().
		Int("positions", len(fens)).
		Int("workers", d.cfg.Workers).
		Dur("movetime", d.cfg.MoveTime).
		Ints("chunk-sizes", ChunkSizes(len(fens), d.cfg.Workers)).
		Msg("starting analysis")

	// Chunk failures are reported, not returned, so a plain Group never
	// cancels the siblings of a failed worker.
	var g errgroup.Group
	partials := make(chan partial)
	for i, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		id := i + 1
		chunk := chunk
		g.Go(func() error {
			partials <- d.analyzeChunk(ctx, id, chunk)
			return nil
		})
	}
	go func() {
		g.Wait()
		close(partials)
	}()

	result := make(AnalysisResult, len(fens))
	var reports []ChunkReport
	for p := range partials {
		for fen, mv := range p.moves {
			result[fen] = mv
		}
		reports = append(reports, p.report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Worker < reports[j].Worker })

	if missing := len(fens) - len(result); missing > 0 {
		logger.Warn().Int("missing", missing).Int("positions", len(fens)).
			Msg("some positions were not analyzed, they will score nothing")
	}
	return result, reports
}

func (d *Dispatcher) analyzeChunk(ctx context.Context, id int, fens []string) (p partial) {
	logger := zerolog.Ctx(ctx).With().Int("worker", id).Logger()
	ctx = logger.WithContext(ctx)

	p.moves = make(map[string]string, len(fens))
	p.report = ChunkReport{Worker: id, Size: len(fens)}
	start := time.Now()
	defer func() {
		p.report.Evaluated = len(p.moves)
		p.report.Elapsed = time.Since(start)
		logger.Info().
			Int("evaluated", p.report.Evaluated).
			Int("size", p.report.Size).
			Dur("elapsed", p.report.Elapsed).
			Msg("worker finished")
	}()
	// A panicking engine adapter loses the rest of its chunk only. This runs
	// after the engine shutdown below.
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("worker panicked, rest of chunk abandoned")
			p.report.Err = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	adapter, err := d.factory(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("could not start engine, chunk abandoned")
		p.report.Err = fmt.Errorf("starting engine: %w", err)
		return p
	}
	defer func() {
		if err := adapter.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("engine shutdown")
		}
	}()

	if err := adapter.Configure(ctx, d.cfg.Options); err != nil {
		logger.Error().Err(err).Msg("could not configure engine, chunk abandoned")
		p.report.Err = fmt.Errorf("configuring engine: %w", err)
		return p
	}

	searches := make([]float64, 0, len(fens))
	for i, fen := range fens {
		t := time.Now()
		mv, err := adapter.Evaluate(ctx, fen, d.cfg.MoveTime)
		if err != nil {
			logger.Error().Err(err).
				Str("fen", fen).
				Int("abandoned", len(fens)-i).
				Msg("engine failed, rest of chunk abandoned")
			p.report.Err = fmt.Errorf("evaluating %q: %w", fen, err)
			break
		}
		searches = append(searches, time.Since(t).Seconds())
		p.moves[fen] = mv
		logger.Debug().Str("fen", fen).Str("move", mv).Msg("analyzed")
	}
	p.report.MeanSearch, p.report.StdevSearch = searchStats(searches)
	return p
}

// searchStats returns the mean and sample standard deviation of search
// times given in seconds.
func searchStats(secs []float64) (mean, stdev time.Duration) {
	switch len(secs) {
	case 0:
		return 0, 0
	case 1:
		return seconds(secs[0]), 0
	}
	m, s := stat.MeanStdDev(secs, nil)
	return seconds(m), seconds(s)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
