package dataset

import (
	"context"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
)

// Result is the measured period of one dataset function.
type Result struct {
	N        int
	Form     Form
	Function feedback.Function
	Period   int
}

// Maximal reports whether the period is 2^N-1.
func (r Result) Maximal() bool {
	return r.Period == oracle.MaxPeriod(r.N)
}

// Summary tallies a bulk period check.
type Summary struct {
	Checked  int
	Maximal  int
	Skipped  int // wider than the oracle accepts
	Failures []Result
}

// CheckPeriods runs the oracle on every function of width at most maxWidth.
// maxWidth is clamped to oracle.MaxWidth; wider groups are counted as
// skipped. Every function in the dataset is expected to be maximal, so any
// other period lands in Failures.
func (d *Dataset) CheckPeriods(ctx context.Context, maxWidth int, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxWidth <= 0 || maxWidth > oracle.MaxWidth {
		maxWidth = oracle.MaxWidth
	}

	var sum Summary
	for _, g := range d.Groups {
		if g.N > maxWidth {
			sum.Skipped += len(g.Functions)
			continue
		}
		logger.Debug("checking group", "n", g.N, "form", g.Form.String(), "functions", len(g.Functions))
		for _, fn := range g.Functions {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			v := feedback.ListToVector(fn)
			period, err := oracle.TestPeriod(g.N, v.Lin, v.Nlins)
			if err != nil {
				return sum, err
			}
			sum.Checked++
			r := Result{N: g.N, Form: g.Form, Function: fn, Period: period}
			if r.Maximal() {
				sum.Maximal++
				continue
			}
			logger.Warn("function is not maximal", "n", g.N, "function", fn.String(), "period", period)
			sum.Failures = append(sum.Failures, r)
		}
	}
	return sum, nil
}
