// Package flow streams candidate batches through the screening pipeline and
// collects the candidates it reports as maximal.
//
// Controller talks to the device over the framed command channel and sees the
// input queue only through its watermark flags. DirectRunner drives the
// distributor's register interface one clock edge at a time.
package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// Channel is the subset of *channel.Client the controller needs.
type Channel interface {
	ReadStatus(ctx context.Context) (channel.Status, error)
	ReadSetting(ctx context.Context) (feedback.Packed, error)
	WriteSetting(p feedback.Packed) error
	Tick(ctx context.Context) error
	Cycles() uint64
}

// Controller feeds a batch through a Channel. The response timeout of the
// channel itself is configured on the client.
type Controller struct {
	ch     Channel
	fb     feedback.Config
	cfg    Config
	Logger *slog.Logger
}

// NewController validates both configurations and returns a controller.
func NewController(ch Channel, fb feedback.Config, cfg Config) (*Controller, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		ch:     ch,
		fb:     fb,
		cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Run submits every candidate of batch and returns the results the device
// reported, in the order they were drained. Every candidate must survive a
// codec round trip before anything is sent.
func (c *Controller) Run(ctx context.Context, batch []feedback.Packed) ([]feedback.Packed, error) {
	if err := checkBatch(c.fb, batch); err != nil {
		return nil, err
	}

	var observed []feedback.Packed
	submitted := 0
	start := c.ch.Cycles()

	for {
		status, err := c.ch.ReadStatus(ctx)
		if err != nil {
			return observed, err
		}
		if err := c.overBudget(start, submitted, len(batch)); err != nil {
			return observed, err
		}

		for !status.OutEmpty() {
			p, err := c.ch.ReadSetting(ctx)
			if err != nil {
				return observed, err
			}
			c.Logger.Debug("result", "setting", p)
			observed = append(observed, p)
			if status, err = c.ch.ReadStatus(ctx); err != nil {
				return observed, err
			}
			if err := c.overBudget(start, submitted, len(batch)); err != nil {
				return observed, err
			}
		}

		if !status.Running() && status.OutEmpty() && submitted == len(batch) {
			c.Logger.Info("run complete", "submitted", submitted, "found", len(observed), "cycles", c.ch.Cycles()-start)
			return observed, nil
		}

		if status.InProgEmpty() && submitted < len(batch) {
			n := min(c.cfg.Burst(), len(batch)-submitted)
			for _, p := range batch[submitted : submitted+n] {
				if err := c.ch.WriteSetting(p); err != nil {
					return observed, err
				}
			}
			submitted += n
			c.Logger.Debug("burst", "count", n, "submitted", submitted, "status", status)
		}

		if err := c.ch.Tick(ctx); err != nil {
			return observed, err
		}
		if err := c.overBudget(start, submitted, len(batch)); err != nil {
			return observed, err
		}
	}
}

// overBudget reports a timeout once the run has used more than MaxCycles.
// Every channel query advances the clock, so it is checked after each one.
func (c *Controller) overBudget(start uint64, submitted, total int) error {
	if c.cfg.MaxCycles == 0 {
		return nil
	}
	if used := c.ch.Cycles() - start; used > c.cfg.MaxCycles {
		return fmt.Errorf("%w: run exceeded %d cycles (used %d) with %d/%d submitted",
			channel.ErrProtocolTimeout, c.cfg.MaxCycles, used, submitted, total)
	}
	return nil
}

func checkBatch(fb feedback.Config, batch []feedback.Packed) error {
	for i, p := range batch {
		if err := fb.CheckRoundTrip(p); err != nil {
			return fmt.Errorf("flow: candidate %d: %w", i, err)
		}
	}
	return nil
}
