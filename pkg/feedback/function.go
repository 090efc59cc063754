// Package feedback converts NLFSR feedback functions between their list,
// vector and packed forms and selects a canonical representative among a
// function and its bit-reciprocal.
//
// A feedback function is an XOR of monomials over the register bits x_0 ..
// x_{N-1}. Monomials with a single index are linear taps; longer monomials are
// AND terms. The three forms are:
//
//   - list form (Function): one Monomial per term, duplicates preserved
//   - vector form (Vector): a linear tap mask plus one mask per AND term,
//     suited to fast simulation
//   - packed form (Packed): the fixed-width word the device accepts. Tap 0 is
//     implicit, the low N-1 bits are the taps for x_1..x_{N-1}, followed by
//     one ceil(log2(N-1))-bit field per nonlinear index holding index-1.
package feedback

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Monomial is a product of register bits identified by index.
type Monomial []int

// Function is the list form of a feedback function.
type Function []Monomial

// Vector is the simulation form of a feedback function.
type Vector struct {
	Lin   uint64   // bit i set for a linear tap at x_i
	Nlins []uint64 // one mask per nonlinear monomial
}

// Packed is the device encoding of a feedback function.
type Packed uint64

func (p Packed) String() string {
	return fmt.Sprintf("0x%X", uint64(p))
}

func (m Monomial) String() string {
	parts := make([]string, len(m))
	for i, idx := range m {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (f Function) String() string {
	parts := make([]string, len(f))
	for i, m := range f {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Equal reports whether two functions hold the same monomials in the same
// order.
func Equal(a, b Function) bool {
	return slices.EqualFunc(a, b, func(x, y Monomial) bool {
		return slices.Equal(x, y)
	})
}

// OrderLex returns a copy of f with the indices of every monomial ascending
// and the monomials sorted by length, then by their index tuple read from the
// highest index down.
func OrderLex(f Function) Function {
	out := make(Function, len(f))
	for i, m := range f {
		s := slices.Clone(m)
		slices.Sort(s)
		out[i] = s
	}
	slices.SortStableFunc(out, func(a, b Monomial) int {
		if len(a) != len(b) {
			return cmp.Compare(len(a), len(b))
		}
		return compareReversed(a, b)
	})
	return out
}

// Reciprocal maps every nonzero index e of f to n-e, the same function seen
// on the reversed register, and returns it in OrderLex form.
func Reciprocal(n int, f Function) Function {
	rec := make(Function, len(f))
	for i, m := range f {
		r := make(Monomial, len(m))
		for j, e := range m {
			if e != 0 {
				e = n - e
			}
			r[j] = e
		}
		rec[i] = r
	}
	return OrderLex(rec)
}

// SmallestLex picks the canonical member of the pair formed by f and its
// reciprocal. Monomials are compared from the highest-ordered one down and
// the first difference decides; a full tie keeps OrderLex(f).
func SmallestLex(n int, f Function) Function {
	ordered := OrderLex(f)
	rec := Reciprocal(n, ordered)
	for i := len(ordered) - 1; i >= 0; i-- {
		switch compareReversed(ordered[i], rec[i]) {
		case -1:
			return ordered
		case 1:
			return rec
		}
	}
	return ordered
}

// compareReversed compares two index tuples read from their last element
// backwards. A tuple that runs out first is the smaller one.
func compareReversed(a, b Monomial) int {
	i, j := len(a)-1, len(b)-1
	for ; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if c := cmp.Compare(a[i], b[j]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
