package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// Registers is the direct-register view of the distributor. Setters take
// effect on the next Tick; getters reflect the state after the last one.
type Registers interface {
	SetStart(v bool)
	SetSettingIn(p feedback.Packed)
	SetSettingRdEn(v bool)
	SettingOut() feedback.Packed
	Idle() bool
	Running() bool
	Success() bool
	Tick(ctx context.Context) error
}

// DirectRunner submits a batch through Registers, collecting results between
// submissions.
type DirectRunner struct {
	regs   Registers
	fb     feedback.Config
	cfg    Config
	cycles uint64
	Logger *slog.Logger
}

func NewDirectRunner(regs Registers, fb feedback.Config, cfg Config) (*DirectRunner, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DirectRunner{
		regs:   regs,
		fb:     fb,
		cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Cycles returns the clock edges driven so far.
func (r *DirectRunner) Cycles() uint64 { return r.cycles }

// Run submits batch and returns the collected results. TimeoutCycles bounds
// the cycles spent without submitting or collecting anything, so it must
// cover one full tester run.
func (r *DirectRunner) Run(ctx context.Context, batch []feedback.Packed) ([]feedback.Packed, error) {
	if err := checkBatch(r.fb, batch); err != nil {
		return nil, err
	}

	var observed []feedback.Packed
	submitted := 0
	stalled := 0
	start := r.cycles

	for {
		switch {
		case r.regs.Success():
			p := r.regs.SettingOut()
			observed = append(observed, p)
			r.regs.SetSettingRdEn(true)
			err := r.tick(ctx)
			r.regs.SetSettingRdEn(false)
			if err != nil {
				return observed, err
			}
			r.Logger.Debug("result", "setting", p)
			stalled = 0

		case submitted < len(batch) && r.regs.Idle():
			r.regs.SetSettingIn(batch[submitted])
			r.regs.SetStart(true)
			err := r.tick(ctx)
			r.regs.SetStart(false)
			if err != nil {
				return observed, err
			}
			submitted++
			stalled = 0

		case submitted == len(batch) && !r.regs.Running():
			r.Logger.Info("run complete", "submitted", submitted, "found", len(observed), "cycles", r.cycles-start)
			return observed, nil

		default:
			if err := r.tick(ctx); err != nil {
				return observed, err
			}
			stalled++
			if stalled > r.cfg.TimeoutCycles {
				return observed, fmt.Errorf("%w: no progress for %d cycles with %d/%d submitted", channel.ErrProtocolTimeout, stalled-1, submitted, len(batch))
			}
		}

		if r.cfg.MaxCycles > 0 && r.cycles-start > r.cfg.MaxCycles {
			return observed, fmt.Errorf("%w: run exceeded %d cycles with %d/%d submitted", channel.ErrProtocolTimeout, r.cfg.MaxCycles, submitted, len(batch))
		}
	}
}

func (r *DirectRunner) tick(ctx context.Context) error {
	if err := r.regs.Tick(ctx); err != nil {
		return err
	}
	r.cycles++
	return nil
}
