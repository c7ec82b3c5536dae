package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/domino14/epdbench/config"
	"github.com/domino14/epdbench/runner"
)

var (
	GitVersion string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epdbench [flags] <suite.epd>",
		Short: "Score a UCI chess engine against an EPD test suite",
		Long: `epdbench runs a UCI engine over every position of an EPD suite, awards
the c8/c9 points of the move the engine chooses, and writes per-position,
per-suite and strength/weakness reports plus a cross-run leaderboard.

Settings can also come from EPDBENCH_* environment variables (for example
EPDBENCH_OPTION="Hash=128 Threads=1") or a YAML config file.`,
		Args:          cobra.ExactArgs(1),
		Version:       GitVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if err := cfg.Load(cmd.Flags()); err != nil {
			return err
		}
		logger := setupLogging(cfg.Debug())
		logger.Debug().Interface("config", cfg.SanitizedSettings()).Msg("loaded config")

		ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
				cancel()
			case <-ctx.Done():
			}
		}()

		out, err := runner.New(cfg).Run(ctx, args[0])
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn().Msg("run cancelled, no reports written")
			} else {
				logger.Error().Err(err).Msg("run failed")
			}
			return err
		}
		fmt.Printf("\nEngine '%s' scored a total of %d points (%d/%d, %.2f%%).\n",
			out.Engine, out.Scorecard.TotalPoints,
			out.Summary.Overall.Points, out.Summary.Overall.Total, out.Summary.Overall.Pct)
		fmt.Printf("Elapsed (sec): %.0f\n", out.Elapsed.Seconds())
		return nil
	}
	return cmd
}

func setupLogging(debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	var logger zerolog.Logger
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
	return logger
}
