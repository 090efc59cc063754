package verify

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/flow"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/generate"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
)

// Distributor is a register-level device that also exposes its counters.
type Distributor interface {
	flow.Registers
	NumStarted() uint64
	NumFound() uint64
	Reset()
}

// DirectSession runs scenarios against the distributor registers, bypassing
// the command channel.
type DirectSession struct {
	Dist   Distributor
	Oracle *oracle.Oracle
	Flow   flow.Config
	Rand   *rand.Rand
	Logger *slog.Logger
}

// NewDirectSession creates a session with the default flow configuration.
func NewDirectSession(d Distributor, o *oracle.Oracle, rng *rand.Rand) *DirectSession {
	cfg := flow.DefaultConfig()
	// A stall lasts at most one tester run.
	if run := oracle.MaxPeriod(o.Config().N) + 2; cfg.TimeoutCycles < run {
		cfg.TimeoutCycles = run
	}
	return &DirectSession{
		Dist:   d,
		Oracle: o,
		Flow:   cfg,
		Rand:   rng,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NeedleInHaystack submits size candidates of which exactly needles are
// maximal.
func (s *DirectSession) NeedleInHaystack(ctx context.Context, size, needles int) (Report, error) {
	batch, _, err := generate.Haystack(s.Oracle,
		generate.Random{Rand: s.Rand}, generate.FromPrimitivePolynomial{Rand: s.Rand},
		s.Rand, size, needles)
	if err != nil {
		return Report{Scenario: "direct needle-in-haystack"}, err
	}
	return s.run(ctx, "direct needle-in-haystack", batch)
}

// NeedlesOnly submits size known-good candidates.
func (s *DirectSession) NeedlesOnly(ctx context.Context, size int) (Report, error) {
	batch, err := generate.Batch(generate.FromPrimitivePolynomial{Rand: s.Rand}, s.Oracle.Config(), size)
	if err != nil {
		return Report{Scenario: "direct needles-only"}, err
	}
	return s.run(ctx, "direct needles-only", batch)
}

// Batch submits an arbitrary batch.
func (s *DirectSession) Batch(ctx context.Context, batch []feedback.Packed) (Report, error) {
	return s.run(ctx, "direct batch", batch)
}

func (s *DirectSession) run(ctx context.Context, name string, batch []feedback.Packed) (Report, error) {
	r := Report{Scenario: name, Submitted: len(batch)}

	expected, err := Expected(s.Oracle, batch)
	if err != nil {
		return r, err
	}
	r.Expected = expected

	runner, err := flow.NewDirectRunner(s.Dist, s.Oracle.Config(), s.Flow)
	if err != nil {
		return r, err
	}
	runner.Logger = s.Logger

	s.Dist.Reset()
	r.Observed, err = runner.Run(ctx, batch)
	r.Cycles = runner.Cycles()
	if err != nil {
		return r, err
	}
	r.Counters = channel.Counters{
		CycleCount: r.Cycles,
		NumFound:   s.Dist.NumFound(),
		NumStarted: s.Dist.NumStarted(),
	}

	if err := CheckResults(r.Expected, r.Observed); err != nil {
		return r, err
	}
	if err := CheckCounters(r.Counters, len(r.Expected), r.Submitted); err != nil {
		return r, err
	}
	s.Logger.Info("scenario passed", "report", r.String())
	return r, nil
}
