package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/flow"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/generate"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
)

// Report summarizes one scenario.
type Report struct {
	Scenario  string
	Submitted int
	Expected  []feedback.Packed
	Observed  []feedback.Packed
	Counters  channel.Counters
	Cycles    uint64
}

func (r Report) String() string {
	return fmt.Sprintf("%s: submitted %d, expected %d, observed %d, found %d, started %d, %d cycles",
		r.Scenario, r.Submitted, len(r.Expected), len(r.Observed), r.Counters.NumFound, r.Counters.NumStarted, r.Cycles)
}

// Session runs scenarios against one device over the command channel.
type Session struct {
	Client *channel.Client
	Oracle *oracle.Oracle
	Flow   flow.Config
	Rand   *rand.Rand
	Logger *slog.Logger
}

// NewSession creates a session with the default flow configuration.
func NewSession(client *channel.Client, o *oracle.Oracle, rng *rand.Rand) *Session {
	return &Session{
		Client: client,
		Oracle: o,
		Flow:   flow.DefaultConfig(),
		Rand:   rng,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// cycleLimit bounds a scenario that polls for completion.
func (s *Session) cycleLimit() uint64 {
	if s.Flow.MaxCycles > 0 {
		return s.Flow.MaxCycles
	}
	return 4*uint64(oracle.MaxPeriod(s.Oracle.Config().N)) + uint64(s.Flow.TimeoutCycles)
}

// Basic submits one known-good candidate, waits for the device to go idle
// and expects the candidate back.
func (s *Session) Basic(ctx context.Context) (Report, error) {
	r := Report{Scenario: "basic", Submitted: 1}
	start := s.Client.Cycles()

	p, err := generate.FromPrimitivePolynomial{Rand: s.Rand}.Candidate(s.Oracle.Config())
	if err != nil {
		return r, err
	}
	r.Expected = []feedback.Packed{p}

	if err := s.Client.Reset(ctx); err != nil {
		return r, err
	}
	if err := s.Client.WriteSetting(p); err != nil {
		return r, err
	}

	for {
		status, err := s.Client.ReadStatus(ctx)
		if err != nil {
			return r, err
		}
		if status.InEmpty() && status.InProgEmpty() && !status.Running() {
			if status.OutEmpty() {
				return r, fmt.Errorf("%w: output queue empty after known-good candidate %s", ErrIncomplete, p)
			}
			break
		}
		if err := s.Client.Tick(ctx); err != nil {
			return r, err
		}
		if s.Client.Cycles()-start > s.cycleLimit() {
			return r, fmt.Errorf("%w: device still busy after %d cycles", channel.ErrProtocolTimeout, s.cycleLimit())
		}
	}

	out, err := s.Client.ReadSetting(ctx)
	if err != nil {
		return r, err
	}
	r.Observed = []feedback.Packed{out}
	return s.finish(ctx, r, start)
}

// Idle checks that the cycle counter runs and the other counters are clear
// after a reset.
func (s *Session) Idle(ctx context.Context) (Report, error) {
	r := Report{Scenario: "idle"}
	start := s.Client.Cycles()

	if err := s.Client.Reset(ctx); err != nil {
		return r, err
	}
	c1, err := s.Client.ReadCycleCount(ctx)
	if err != nil {
		return r, err
	}
	c2, err := s.Client.ReadCycleCount(ctx)
	if err != nil {
		return r, err
	}
	if c2 <= c1 {
		return r, fmt.Errorf("%w: cycle count did not advance (%d then %d)", ErrCounterMismatch, c1, c2)
	}
	return s.finish(ctx, r, start)
}

// NeedleInHaystack submits size candidates of which exactly needles are
// maximal.
func (s *Session) NeedleInHaystack(ctx context.Context, size, needles int) (Report, error) {
	batch, positions, err := generate.Haystack(s.Oracle,
		generate.Random{Rand: s.Rand}, generate.FromPrimitivePolynomial{Rand: s.Rand},
		s.Rand, size, needles)
	if err != nil {
		return Report{Scenario: "needle-in-haystack"}, err
	}
	s.Logger.Debug("haystack", "size", size, "needles", positions)
	return s.run(ctx, "needle-in-haystack", batch)
}

// NeedlesOnly submits size known-good candidates.
func (s *Session) NeedlesOnly(ctx context.Context, size int) (Report, error) {
	batch, err := generate.Batch(generate.FromPrimitivePolynomial{Rand: s.Rand}, s.Oracle.Config(), size)
	if err != nil {
		return Report{Scenario: "needles-only"}, err
	}
	return s.run(ctx, "needles-only", batch)
}

// Batch submits an arbitrary batch.
func (s *Session) Batch(ctx context.Context, batch []feedback.Packed) (Report, error) {
	return s.run(ctx, "batch", batch)
}

func (s *Session) run(ctx context.Context, name string, batch []feedback.Packed) (Report, error) {
	r := Report{Scenario: name, Submitted: len(batch)}
	start := s.Client.Cycles()

	expected, err := Expected(s.Oracle, batch)
	if err != nil {
		return r, err
	}
	r.Expected = expected

	ctrl, err := flow.NewController(s.Client, s.Oracle.Config(), s.Flow)
	if err != nil {
		return r, err
	}
	ctrl.Logger = s.Logger

	if err := s.Client.Reset(ctx); err != nil {
		return r, err
	}
	r.Observed, err = ctrl.Run(ctx, batch)
	if err != nil {
		return r, err
	}
	return s.finish(ctx, r, start)
}

// finish reads the counters and applies both completeness checks.
func (s *Session) finish(ctx context.Context, r Report, start uint64) (Report, error) {
	var err error
	if r.Counters, err = s.Client.Counters(ctx); err != nil {
		return r, err
	}
	r.Cycles = s.Client.Cycles() - start

	if err := CheckResults(r.Expected, r.Observed); err != nil {
		return r, err
	}
	if err := CheckCounters(r.Counters, len(r.Expected), r.Submitted); err != nil {
		return r, err
	}
	s.Logger.Info("scenario passed", "report", r.String())
	return r, nil
}
