// Package generate produces packed NLFSR candidates for verification runs.
//
// Every strategy draws from an explicit *rand.Rand so a run can be replayed
// from its seed; NewRand builds one over a SHAKE128 stream.
//
//   - Random fills the linear taps and every nonlinear index field uniformly.
//   - FromPrimitivePolynomial takes the linear part from a minimal-weight
//     primitive polynomial and adds "fake" monomials x_k·x_k·…·x_k whose
//     contribution is cancelled by flipping the linear tap k, so the result
//     is always maximal.
package generate

import (
	"fmt"
	"math/rand/v2"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
)

// maxRedraws bounds how often Haystack redraws an accidental needle.
const maxRedraws = 10000

// Strategy produces one packed candidate for a register configuration.
type Strategy interface {
	Candidate(cfg feedback.Config) (feedback.Packed, error)
}

// Random draws candidates uniformly over the packed layout.
type Random struct {
	Rand *rand.Rand
}

func (r Random) Candidate(cfg feedback.Config) (feedback.Packed, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	w := cfg.IndexWidth()
	p := feedback.Packed(r.Rand.Uint64() & (uint64(1)<<uint(cfg.N-1) - 1))
	for i := 0; i < cfg.NumNlin*cfg.NumNlinIdx; i++ {
		idx := r.Rand.IntN(cfg.N - 1)
		p |= feedback.Packed(idx) << uint(cfg.N-1+w*i)
	}
	return p, nil
}

// FromPrimitivePolynomial builds known-good candidates.
type FromPrimitivePolynomial struct {
	Rand *rand.Rand
}

func (g FromPrimitivePolynomial) Candidate(cfg feedback.Config) (feedback.Packed, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	m, err := PrimitivePolynomial(cfg.N, g.Rand)
	if err != nil {
		return 0, err
	}

	// Packed bit j is the tap on x_{j+1}, which pairs with the coefficient
	// of x^(N-1-j).
	var lin uint64
	for j := 0; j < cfg.N-1; j++ {
		if (m>>uint(cfg.N-1-j))&1 != 0 {
			lin |= 1 << uint(j)
		}
	}

	w := cfg.IndexWidth()
	var nlin feedback.Packed
	for i := 0; i < cfg.NumNlin; i++ {
		idx := g.Rand.IntN(cfg.N - 1)
		for j := 0; j < cfg.NumNlinIdx; j++ {
			nlin |= feedback.Packed(idx) << uint(w*(cfg.NumNlinIdx*i+j))
		}
		lin ^= 1 << uint(idx)
	}
	return feedback.Packed(lin) | nlin<<uint(cfg.N-1), nil
}

// Batch draws size candidates from s.
func Batch(s Strategy, cfg feedback.Config, size int) ([]feedback.Packed, error) {
	out := make([]feedback.Packed, 0, size)
	for i := 0; i < size; i++ {
		p, err := s.Candidate(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Haystack builds a batch of size candidates holding exactly needles maximal
// ones, drawn from needle, at random positions. Every other slot comes from
// hay and is redrawn while the oracle finds it maximal. The needle positions
// are returned in ascending order.
func Haystack(o *oracle.Oracle, hay, needle Strategy, rng *rand.Rand, size, needles int) ([]feedback.Packed, []int, error) {
	if needles < 0 || needles > size {
		return nil, nil, fmt.Errorf("generate: %d needles do not fit a batch of %d", needles, size)
	}
	cfg := o.Config()

	isNeedle := make([]bool, size)
	for _, pos := range rng.Perm(size)[:needles] {
		isNeedle[pos] = true
	}

	batch := make([]feedback.Packed, size)
	var positions []int
	for i := range batch {
		if isNeedle[i] {
			p, err := needle.Candidate(cfg)
			if err != nil {
				return nil, nil, err
			}
			ok, err := o.IsMaxPeriod(p)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				return nil, nil, fmt.Errorf("generate: needle strategy produced non-maximal candidate %s", p)
			}
			batch[i] = p
			positions = append(positions, i)
			continue
		}

		p, err := drawNonMaximal(o, hay, cfg)
		if err != nil {
			return nil, nil, err
		}
		batch[i] = p
	}
	return batch, positions, nil
}

func drawNonMaximal(o *oracle.Oracle, s Strategy, cfg feedback.Config) (feedback.Packed, error) {
	for attempt := 0; attempt < maxRedraws; attempt++ {
		p, err := s.Candidate(cfg)
		if err != nil {
			return 0, err
		}
		ok, err := o.IsMaxPeriod(p)
		if err != nil {
			return 0, err
		}
		if !ok {
			return p, nil
		}
	}
	return 0, fmt.Errorf("generate: no non-maximal candidate after %d draws", maxRedraws)
}
