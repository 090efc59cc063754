// Package oracle is the software golden model for the period screen. It steps
// a feedback shift register one bit at a time and counts the cycle length
// starting from state 1. The cost is O(2^N), so register widths are capped at
// MaxWidth; it is a correctness oracle, not a search engine.
package oracle

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// MaxWidth is the widest register the oracle will simulate.
const MaxWidth = 24

// ErrPrecondition reports a register width outside what the oracle accepts.
var ErrPrecondition = errors.New("oracle: golden model precondition")

// Parity returns the XOR of all bits of v.
func Parity(v uint64) uint64 {
	v ^= v >> 32
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v &= 0xf
	return (0x6996 >> v) & 1
}

// MaxPeriod is 2^n-1, the period of a maximal n-bit register.
func MaxPeriod(n int) int {
	return 1<<uint(n) - 1
}

// TestPeriod runs the n-bit register described by lin and nlins from state 1
// and returns the number of steps until state 1 recurs. Each step computes
// the feedback bit as parity(state&lin) XOR one bit per nonlinear mask that
// is fully covered by the state, then shifts right and inserts the bit at
// position n-1. It returns 0 if the state does not come back within 2^n-1
// steps.
func TestPeriod(n int, lin uint64, nlins []uint64) (int, error) {
	if n < 1 || n > MaxWidth {
		return 0, fmt.Errorf("%w: register width %d outside [1, %d]", ErrPrecondition, n, MaxWidth)
	}

	const init = 1
	state := uint64(init)
	limit := MaxPeriod(n)
	for step := 1; step <= limit; step++ {
		fb := Parity(state & lin)
		for _, term := range nlins {
			if state&term == term {
				fb ^= 1
			}
		}
		state = (state | fb<<uint(n)) >> 1
		if state == init {
			return step, nil
		}
	}
	return 0, nil
}

// Oracle evaluates packed candidates for one register configuration.
type Oracle struct {
	cfg feedback.Config
}

// New validates cfg and rejects registers wider than MaxWidth up front.
func New(cfg feedback.Config) (*Oracle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.N > MaxWidth {
		return nil, fmt.Errorf("%w: register width %d exceeds %d", ErrPrecondition, cfg.N, MaxWidth)
	}
	return &Oracle{cfg: cfg}, nil
}

// Config returns the register configuration the oracle was built for.
func (o *Oracle) Config() feedback.Config {
	return o.cfg
}

// Period decodes p and returns its cycle length from state 1.
func (o *Oracle) Period(p feedback.Packed) (int, error) {
	v, err := o.cfg.PackedToVector(p)
	if err != nil {
		return 0, err
	}
	return TestPeriod(o.cfg.N, v.Lin, v.Nlins)
}

// IsMaxPeriod reports whether p describes a maximal-period register.
func (o *Oracle) IsMaxPeriod(p feedback.Packed) (bool, error) {
	period, err := o.Period(p)
	if err != nil {
		return false, err
	}
	return period == MaxPeriod(o.cfg.N), nil
}

// PeriodOf evaluates a list-form function directly.
func (o *Oracle) PeriodOf(f feedback.Function) (int, error) {
	v := feedback.ListToVector(f)
	return TestPeriod(o.cfg.N, v.Lin, v.Nlins)
}
