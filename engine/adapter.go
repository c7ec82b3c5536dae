// Package engine drives external chess engines. Each Adapter wraps exactly
// one engine process and is used by exactly one worker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NoMove is returned by Evaluate when the engine produced no line.
const NoMove = ""

var (
	ErrMalformedOption = errors.New("option must have the form Name=Value")
	ErrEngineClosed    = errors.New("engine has been shut down")
)

// Adapter is the capability set the benchmark needs from an engine.
type Adapter interface {
	// Configure applies each "name=value" option in order. Malformed or
	// rejected options are logged as warnings and skipped, leaving the
	// engine's previous value in place. An error means the engine is
	// unusable.
	Configure(ctx context.Context, options []string) error
	// Evaluate searches fen for up to budget and returns the first move of
	// the engine's principal variation, or NoMove. An error means the
	// adapter cannot be used for further positions.
	Evaluate(ctx context.Context, fen string, budget time.Duration) (string, error)
	// Shutdown releases the engine process. It must be called exactly once,
	// whatever happened before.
	Shutdown() error
}

// Factory creates the adapter used by one worker.
type Factory func(ctx context.Context, workerID int) (Adapter, error)

// ParseOption splits "Name=Value" at the first '='.
func ParseOption(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedOption, s)
	}
	return name, strings.TrimSpace(value), nil
}

// SafeName makes an engine name usable in file names.
func SafeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
