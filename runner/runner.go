// Package runner ties a benchmark run together: it loads the suite, spreads
// it over engine workers, scores the answers and writes the reports.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog"

	"github.com/domino14/epdbench/config"
	"github.com/domino14/epdbench/engine"
	"github.com/domino14/epdbench/epd"
	"github.com/domino14/epdbench/report"
	"github.com/domino14/epdbench/scoring"
	"github.com/domino14/epdbench/worker"
)

const rankedRows = 5

// ErrInterrupted is returned when the run was cancelled during analysis.
// No reports are written for such a run.
var ErrInterrupted = errors.New("analysis interrupted")

// Runner runs one suite against one engine.
type Runner struct {
	cfg         *config.Config
	factory     engine.Factory
	discover    func(ctx context.Context, path string) (string, error)
	totalMemory func() uint64
	out         io.Writer
}

type Option func(*Runner)

// WithFactory replaces the UCI engines started from the config.
func WithFactory(f engine.Factory) Option {
	return func(r *Runner) { r.factory = f }
}

// WithNameDiscovery replaces how the engine name is queried when the config
// does not set it.
func WithNameDiscovery(fn func(ctx context.Context, path string) (string, error)) Option {
	return func(r *Runner) { r.discover = fn }
}

func WithTotalMemory(fn func() uint64) Option {
	return func(r *Runner) { r.totalMemory = fn }
}

// WithOutput sets where the histogram goes.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:         cfg,
		discover:    engine.DiscoverName,
		totalMemory: memory.TotalMemory,
		out:         os.Stdout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Outcome is what a completed run produced.
type Outcome struct {
	Engine      string
	Scorecard   *scoring.Scorecard
	Summary     *report.Summary
	Leaderboard []report.LeaderboardEntry
	Chunks      []worker.ChunkReport
	// Artifacts lists the files written, in order.
	Artifacts []string
	Elapsed   time.Duration
}

// Run benchmarks the configured engine on the suite at suitePath.
func (r *Runner) Run(ctx context.Context, suitePath string) (*Outcome, error) {
	logger := zerolog.Ctx(ctx)
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	options, err := r.cfg.EngineOptions()
	if err != nil {
		return nil, err
	}

	name := r.cfg.EngineName()
	if name == "" {
		logger.Info().Str("path", r.cfg.EnginePath()).Msg("engine name not provided, querying the engine")
		name, err = r.discover(ctx, r.cfg.EnginePath())
		if err != nil {
			return nil, fmt.Errorf("could not query engine name from %s, set it with --%s: %w",
				r.cfg.EnginePath(), config.ConfigEngineName, err)
		}
		logger.Info().Str("name", name).Msg("detected engine name")
	}

	if r.cfg.MemoryCheck() {
		r.checkMemory(ctx, options)
	}

	set, err := epd.ParseFile(suitePath)
	if err != nil {
		return nil, fmt.Errorf("loading suite: %w", err)
	}
	logger.Info().
		Str("suite", suitePath).
		Int("records", set.Records()).
		Int("positions", set.Len()).
		Int("ids", len(set.DistinctIDs())).
		Msg("suite loaded")

	outDir := r.cfg.OutputDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	factory := r.factory
	if factory == nil {
		factory = engine.NewUCIFactory(engine.UCIConfig{
			Path:          r.cfg.EnginePath(),
			EngineName:    name,
			Transcripts:   r.cfg.UCILog(),
			TranscriptDir: outDir,
			StartAttempts: r.cfg.StartAttempts(),
		})
	}

	started := time.Now()
	dispatcher := worker.NewDispatcher(worker.Config{
		Workers:  r.cfg.Workers(),
		MoveTime: r.cfg.MoveTime(),
		Options:  options,
	}, factory)
	results, chunks := dispatcher.Run(ctx, set.FENs())
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
	card := scoring.Aggregate(results, set)
	elapsed := time.Since(started)

	out := &Outcome{Engine: name, Scorecard: card, Chunks: chunks, Elapsed: elapsed}

	details := report.ArtifactPath(outDir, name, report.ArtifactDetails)
	if err := report.WriteDetails(details, card); err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, details)
	if len(card.Warnings) > 0 {
		logger.Warn().Int("count", len(card.Warnings)).Msg("results for positions missing from the suite")
	}

	suiteFile := filepath.Base(suitePath)
	summary := report.Summarize(report.Params{
		Engine:    name,
		SuiteFile: suiteFile,
		MoveTime:  r.cfg.MoveTimeSeconds(),
	}, card, set)
	out.Summary = summary
	if err := r.writeSummaries(out, outDir, suiteFile); err != nil {
		return nil, err
	}

	store, err := report.OpenLeaderboard(r.cfg.Leaderboard())
	if err != nil {
		return nil, fmt.Errorf("opening leaderboard: %w", err)
	}
	defer store.Close()
	out.Leaderboard, err = report.UpdateLeaderboard(ctx, store, summary.Overall)
	if err != nil {
		return nil, fmt.Errorf("updating leaderboard: %w", err)
	}
	out.Artifacts = append(out.Artifacts, r.cfg.Leaderboard())

	rec := &report.RunRecord{
		Engine:    name,
		Suite:     suiteFile,
		MoveTime:  r.cfg.MoveTimeSeconds(),
		Workers:   r.cfg.Workers(),
		Options:   options,
		Started:   started.UTC(),
		Elapsed:   elapsed,
		Positions: set.Len(),
		Analyzed:  card.Analyzed(),
		Solved:    card.Solved(),
		Warnings:  len(card.Warnings),
		Suites:    card.SuiteOrder,
		Overall:   summary.Overall,
		Chunks:    report.ChunkRecords(chunks),
	}
	recPath := report.RecordPath(outDir, name)
	if err := report.WriteRunRecord(recPath, rec); err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, recPath)

	if r.cfg.Histogram() {
		if err := report.PrintHistogram(r.out, summary.Rows); err != nil {
			logger.Warn().Err(err).Msg("could not print histogram")
		}
	}

	logger.Info().
		Str("engine", name).
		Int("points", summary.Overall.Points).
		Int("total", summary.Overall.Total).
		Float64("pct", summary.Overall.Pct).
		Dur("elapsed", elapsed).
		Strs("artifacts", out.Artifacts).
		Msg("run complete")
	if r.cfg.UCILog() {
		logger.Info().Str("pattern", engine.TranscriptGlob(outDir, name)).Msg("engine transcripts written")
	}
	return out, nil
}

func (r *Runner) writeSummaries(out *Outcome, outDir, suiteFile string) error {
	rows := out.Summary.Rows
	summaryPath := report.ArtifactPath(outDir, out.Engine, report.ArtifactSummary)
	if err := report.WriteSummary(summaryPath, rows); err != nil {
		return err
	}
	strengthPath := report.ArtifactPath(outDir, out.Engine, report.ArtifactStrength)
	if err := report.WriteRanked(strengthPath, report.Strengths(suiteFile, rows, rankedRows)); err != nil {
		return err
	}
	weaknessPath := report.ArtifactPath(outDir, out.Engine, report.ArtifactWeakness)
	if err := report.WriteRanked(weaknessPath, report.Weaknesses(suiteFile, rows, rankedRows)); err != nil {
		return err
	}
	out.Artifacts = append(out.Artifacts, summaryPath, strengthPath, weaknessPath)
	return nil
}

// checkMemory warns when every worker allocating the requested hash table
// would exceed the machine's memory. It reports whether it warned.
func (r *Runner) checkMemory(ctx context.Context, options []string) bool {
	hashMB := 0
	for _, o := range options {
		name, value, err := engine.ParseOption(o)
		if err != nil || !strings.EqualFold(name, "Hash") {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			hashMB = n
		}
	}
	total := r.totalMemory()
	if hashMB <= 0 || total == 0 {
		return false
	}
	need := uint64(r.cfg.Workers()) * uint64(hashMB) << 20
	if need <= total {
		return false
	}
	zerolog.Ctx(ctx).Warn().
		Int("workers", r.cfg.Workers()).
		Int("hash-mb", hashMB).
		Uint64("need-mb", need>>20).
		Uint64("system-mb", total>>20).
		Msg("engine hash tables may not fit in memory")
	return true
}
