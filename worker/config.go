package worker

import "time"

// Config controls how a suite is spread over engine workers.
type Config struct {
	// Number of engine processes running in parallel.
	Workers int

	// Search budget per position.
	MoveTime time.Duration

	// Engine options as "Name=Value", applied in order by every worker.
	Options []string
}

// DefaultConfig creates a Config with default values
func DefaultConfig() Config {
	return Config{
		Workers:  1,
		MoveTime: time.Second,
	}
}
