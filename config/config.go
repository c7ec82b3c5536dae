// Package config holds the settings of a benchmark run. Values come from
// command line flags, EPDBENCH_* environment variables and an optional YAML
// file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigFile          = "config"
	ConfigEnginePath    = "engine-path"
	ConfigEngineName    = "engine-name"
	ConfigWorkers       = "workers"
	ConfigMoveTime      = "movetime"
	ConfigOption        = "option"
	ConfigUCILog        = "uci-log"
	ConfigOutputDir     = "output-dir"
	ConfigLeaderboard   = "leaderboard"
	ConfigDebug         = "debug"
	ConfigStartAttempts = "engine-start-attempts"
	ConfigHistogram     = "histogram"
	ConfigMemoryCheck   = "memory-check"
)

const envPrefix = "EPDBENCH"

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config holding only defaults and environment
// overrides.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.SetDefault(ConfigEnginePath, "")
	c.SetDefault(ConfigEngineName, "")
	c.SetDefault(ConfigWorkers, 1)
	c.SetDefault(ConfigMoveTime, 1.0)
	c.SetDefault(ConfigOption, []string{})
	c.SetDefault(ConfigUCILog, false)
	c.SetDefault(ConfigOutputDir, ".")
	c.SetDefault(ConfigLeaderboard, "points.csv")
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigStartAttempts, 2)
	c.SetDefault(ConfigHistogram, false)
	c.SetDefault(ConfigMemoryCheck, true)

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return c
}

// AddFlags registers the command line flags of every setting.
func AddFlags(fs *pflag.FlagSet) {
	fs.StringP(ConfigFile, "c", "", "YAML config file (default ./epdbench.yaml if present)")
	fs.StringP(ConfigEnginePath, "p", "", "path to the UCI engine executable")
	fs.StringP(ConfigEngineName, "n", "", "engine name for reports (queried from the engine if empty)")
	fs.IntP(ConfigWorkers, "w", 1, "number of engine processes running in parallel")
	fs.Float64P(ConfigMoveTime, "t", 1.0, "search time per position, in seconds")
	fs.StringArrayP(ConfigOption, "o", nil, "UCI option as Name=Value, may be repeated (e.g. -o Threads=4 -o Hash=128)")
	fs.Bool(ConfigUCILog, false, "write each worker's UCI exchange to <engine>_analysis_worker_<n>.txt")
	fs.String(ConfigOutputDir, ".", "directory for the report files")
	fs.String(ConfigLeaderboard, "points.csv", "cross-run leaderboard; .db/.sqlite/.sqlite3 selects SQLite")
	fs.Bool(ConfigDebug, false, "debug logging")
	fs.Int(ConfigStartAttempts, 2, "attempts at starting each engine")
	fs.Bool(ConfigHistogram, false, "print a histogram of suite percentages")
	fs.Bool(ConfigMemoryCheck, true, "warn when workers x Hash exceeds system memory")
}

// Load binds parsed flags and reads the config file, if any.
func (c *Config) Load(fs *pflag.FlagSet) error {
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	if f := c.GetString(ConfigFile); f != "" {
		c.SetConfigFile(f)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", f, err)
		}
		return nil
	}
	c.SetConfigName("epdbench")
	c.SetConfigType("yaml")
	c.AddConfigPath(".")
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func (c *Config) EnginePath() string { return c.GetString(ConfigEnginePath) }
func (c *Config) EngineName() string { return strings.TrimSpace(c.GetString(ConfigEngineName)) }
func (c *Config) Workers() int       { return c.GetInt(ConfigWorkers) }

// MoveTimeSeconds is the per-position budget as configured.
func (c *Config) MoveTimeSeconds() float64 { return c.GetFloat64(ConfigMoveTime) }

func (c *Config) MoveTime() time.Duration {
	return time.Duration(c.MoveTimeSeconds() * float64(time.Second))
}

// EngineOptions returns the "Name=Value" engine options in order. A single
// string, as set from the environment or a config file scalar, is split
// like a shell command line, so values with spaces can be quoted.
func (c *Config) EngineOptions() ([]string, error) {
	switch v := c.Get(ConfigOption).(type) {
	case nil:
		return nil, nil
	case string:
		opts, err := shellquote.Split(v)
		if err != nil {
			return nil, fmt.Errorf("splitting %s: %w", ConfigOption, err)
		}
		return opts, nil
	case []string:
		return v, nil
	}
	return c.GetStringSlice(ConfigOption), nil
}

func (c *Config) UCILog() bool        { return c.GetBool(ConfigUCILog) }
func (c *Config) OutputDir() string   { return c.GetString(ConfigOutputDir) }
func (c *Config) Leaderboard() string { return c.GetString(ConfigLeaderboard) }
func (c *Config) Debug() bool         { return c.GetBool(ConfigDebug) }
func (c *Config) StartAttempts() int  { return c.GetInt(ConfigStartAttempts) }
func (c *Config) Histogram() bool     { return c.GetBool(ConfigHistogram) }
func (c *Config) MemoryCheck() bool   { return c.GetBool(ConfigMemoryCheck) }

// Validate rejects settings a run cannot start with.
func (c *Config) Validate() error {
	if c.EnginePath() == "" {
		return fmt.Errorf("%s is required", ConfigEnginePath)
	}
	if c.Workers() < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", ConfigWorkers, c.Workers())
	}
	if c.MoveTimeSeconds() <= 0 {
		return fmt.Errorf("%s must be positive, got %v", ConfigMoveTime, c.MoveTimeSeconds())
	}
	if c.StartAttempts() < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", ConfigStartAttempts, c.StartAttempts())
	}
	if _, err := c.EngineOptions(); err != nil {
		return err
	}
	return nil
}

// SanitizedSettings returns the effective settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	if opts, err := c.EngineOptions(); err == nil {
		settings[ConfigOption] = opts
	}
	return settings
}
