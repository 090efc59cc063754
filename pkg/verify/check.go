// Package verify decides whether a screening run was complete and correct:
// the device must report exactly the maximal candidates of the batch, with
// multiplicity, and its counters must agree.
package verify

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
)

var (
	ErrIncomplete      = errors.New("verify: results incomplete")
	ErrCounterMismatch = errors.New("verify: counter mismatch")
)

// Expected returns the members of batch the oracle finds maximal, keeping
// duplicates and batch order.
func Expected(o *oracle.Oracle, batch []feedback.Packed) ([]feedback.Packed, error) {
	var out []feedback.Packed
	for _, p := range batch {
		ok, err := o.IsMaxPeriod(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CheckResults compares expected and observed as multisets.
func CheckResults(expected, observed []feedback.Packed) error {
	counts := make(map[feedback.Packed]int, len(expected))
	for _, p := range expected {
		counts[p]++
	}
	var unexpected []feedback.Packed
	for _, p := range observed {
		if counts[p] == 0 {
			unexpected = append(unexpected, p)
			continue
		}
		counts[p]--
	}
	var missing []feedback.Packed
	for _, p := range expected {
		if counts[p] > 0 {
			missing = append(missing, p)
			counts[p]--
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s, unexpected %s", ErrIncomplete, formatList(missing), formatList(unexpected))
}

// CheckCounters requires the device counters to match the batch.
func CheckCounters(c channel.Counters, expected, submitted int) error {
	if c.NumFound != uint64(expected) {
		return fmt.Errorf("%w: NUM_FOUND = %d, want %d", ErrCounterMismatch, c.NumFound, expected)
	}
	if c.NumStarted != uint64(submitted) {
		return fmt.Errorf("%w: NUM_STARTED = %d, want %d", ErrCounterMismatch, c.NumStarted, submitted)
	}
	return nil
}

func formatList(ps []feedback.Packed) string {
	sorted := slices.Clone(ps)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
