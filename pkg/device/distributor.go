package device

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// Distributor hands candidates to the first idle tester and collects the
// maximal ones in a bounded output queue. Its fields match the direct
// register interface: start, setting_in and setting_rd_en are sampled on
// the clock edge; setting_out, idle, running and success reflect the state
// after it.
type Distributor struct {
	testers  []*Tester
	out      []feedback.Packed
	outDepth int

	start     bool
	settingIn feedback.Packed
	rdEn      bool

	numStarted uint64
	numFound   uint64
}

// NewDistributor creates a pool of testers with an output queue of outDepth
// entries.
func NewDistributor(cfg feedback.Config, testers, outDepth int) *Distributor {
	d := &Distributor{outDepth: outDepth}
	for i := 0; i < testers; i++ {
		d.testers = append(d.testers, NewTester(cfg))
	}
	return d
}

func (d *Distributor) SetStart(v bool)                { d.start = v }
func (d *Distributor) SetSettingIn(p feedback.Packed) { d.settingIn = p }
func (d *Distributor) SetSettingRdEn(v bool)          { d.rdEn = v }
func (d *Distributor) NumStarted() uint64             { return d.numStarted }
func (d *Distributor) NumFound() uint64               { return d.numFound }
func (d *Distributor) Testers() []*Tester             { return d.testers }

// SettingOut is the head of the output queue, zero when it is empty.
func (d *Distributor) SettingOut() feedback.Packed {
	if len(d.out) == 0 {
		return 0
	}
	return d.out[0]
}

// Idle reports whether a tester can accept a candidate.
func (d *Distributor) Idle() bool {
	for _, t := range d.testers {
		if t.Idle() {
			return true
		}
	}
	return false
}

// Running reports whether any tester holds work, including results waiting
// for room in the output queue.
func (d *Distributor) Running() bool {
	for _, t := range d.testers {
		if !t.Idle() {
			return true
		}
	}
	return false
}

// Success reports a result waiting in the output queue.
func (d *Distributor) Success() bool {
	return len(d.out) > 0
}

// Tick applies one clock edge.
func (d *Distributor) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.step()
	return nil
}

func (d *Distributor) step() {
	if d.rdEn && len(d.out) > 0 {
		d.out = d.out[1:]
	}
	if d.start {
		d.dispatch(d.settingIn)
	}
	for _, t := range d.testers {
		t.Tick()
		if t.Success() && len(d.out) < d.outDepth {
			d.out = append(d.out, t.Setting())
			d.numFound++
			t.Ack()
		}
	}
}

func (d *Distributor) dispatch(p feedback.Packed) bool {
	for _, t := range d.testers {
		if t.Start(p) {
			d.numStarted++
			return true
		}
	}
	return false
}

// pop removes the head of the output queue.
func (d *Distributor) pop() (feedback.Packed, bool) {
	if len(d.out) == 0 {
		return 0, false
	}
	p := d.out[0]
	d.out = d.out[1:]
	return p, true
}

// Reset drops all work, results and counters.
func (d *Distributor) Reset() {
	for _, t := range d.testers {
		t.Reset()
	}
	d.out = nil
	d.start, d.rdEn = false, false
	d.settingIn = 0
	d.numStarted, d.numFound = 0, 0
}
