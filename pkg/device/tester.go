// Package device is a cycle-level software model of the screening pipeline:
// a single Tester that runs one candidate register until it cycles, a
// Distributor that shares work across a pool of testers and queues the
// maximal ones, and Top, which adds the framed byte link, the input queue and
// the counters.
//
// The model decodes packed settings on its own rather than through
// pkg/feedback so that it can be checked against the golden model instead of
// sharing its bugs.
package device

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// State is the tester controller state.
type State uint8

const (
	StateIdle State = iota
	StateRun
	StateHold
)

var stateNames = map[State]string{
	StateIdle: "Idle",
	StateRun:  "Run",
	StateHold: "Hold",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// Tester steps one NLFSR per clock edge. It starts from state 1 and stops
// when the register returns to 1 or the maximal period is exhausted. A
// maximal candidate is held until it is acknowledged; any other candidate
// drops straight back to Idle.
type Tester struct {
	cfg feedback.Config

	state   State
	setting feedback.Packed
	lin     uint64
	nlins   []uint64
	reg     uint64
	steps   uint64
	success bool
}

// NewTester creates an idle tester for registers shaped by cfg.
func NewTester(cfg feedback.Config) *Tester {
	return &Tester{cfg: cfg, nlins: make([]uint64, cfg.NumNlin)}
}

func (t *Tester) State() State             { return t.state }
func (t *Tester) Idle() bool               { return t.state == StateIdle }
func (t *Tester) Success() bool            { return t.state == StateHold && t.success }
func (t *Tester) Setting() feedback.Packed { return t.setting }

// Start latches a setting. It is ignored unless the tester is idle.
func (t *Tester) Start(p feedback.Packed) bool {
	if t.state != StateIdle {
		return false
	}
	t.setting = p
	t.decode(p)
	t.reg = 1
	t.steps = 0
	t.success = false
	t.state = StateRun
	return true
}

// Ack releases a held result.
func (t *Tester) Ack() {
	if t.state == StateHold {
		t.state = StateIdle
	}
}

// Reset returns the tester to Idle, dropping any work.
func (t *Tester) Reset() {
	t.state = StateIdle
	t.success = false
}

// Tick advances the register by one step.
func (t *Tester) Tick() {
	if t.state != StateRun {
		return
	}
	n := uint(t.cfg.N)
	fb := parity(t.reg & t.lin)
	for _, m := range t.nlins {
		if t.reg&m == m {
			fb ^= 1
		}
	}
	t.reg = (t.reg | fb<<n) >> 1
	t.steps++

	period := uint64(1)<<n - 1
	switch {
	case t.reg == 1:
		t.success = t.steps == period
	case t.steps >= period:
		t.success = false
	default:
		return
	}
	if t.success {
		t.state = StateHold
	} else {
		t.state = StateIdle
	}
}

// decode unpacks p into tap masks. Index fields pointing past the register
// select a bit that always reads zero, which disables the term.
func (t *Tester) decode(p feedback.Packed) {
	n := t.cfg.N
	w := t.cfg.IndexWidth()
	v := uint64(p)

	t.lin = (v&(uint64(1)<<uint(n-1)-1))<<1 | 1
	v >>= uint(n - 1)

	field := uint64(1)<<uint(w) - 1
	for i := range t.nlins {
		var mask uint64
		for j := 0; j < t.cfg.NumNlinIdx; j++ {
			idx := v&field + 1
			v >>= uint(w)
			if idx >= uint64(n) {
				mask |= 1 << 63
				continue
			}
			mask |= 1 << idx
		}
		t.nlins[i] = mask
	}
}

func parity(v uint64) uint64 {
	v ^= v >> 32
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}
