package flow

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
)

var ErrInvalidConfig = errors.New("flow: invalid configuration")

// Config controls a verification run.
type Config struct {
	// Depth and Threshold describe the device input queue: once the
	// programmable-empty flag rises at most Threshold entries are queued, so
	// Depth-Threshold more always fit.
	Depth     int
	Threshold int

	// TimeoutCycles bounds every single wait (a response, a free tester).
	TimeoutCycles int
	// MaxCycles bounds the whole run; zero means unbounded.
	MaxCycles uint64
}

// DefaultConfig returns the reference queue geometry.
func DefaultConfig() Config {
	return Config{
		Depth:         16,
		Threshold:     1,
		TimeoutCycles: channel.DefaultTimeoutCycles,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Depth < 2 {
		return fmt.Errorf("%w: depth %d too small", ErrInvalidConfig, c.Depth)
	}
	if c.Threshold < 0 || c.Threshold >= c.Depth {
		return fmt.Errorf("%w: threshold %d outside [0, %d)", ErrInvalidConfig, c.Threshold, c.Depth)
	}
	if c.TimeoutCycles < 1 {
		return fmt.Errorf("%w: timeout must be positive, got %d cycles", ErrInvalidConfig, c.TimeoutCycles)
	}
	return nil
}

// Burst is the number of candidates that fit after one watermark assertion.
func (c Config) Burst() int {
	return c.Depth - c.Threshold
}
