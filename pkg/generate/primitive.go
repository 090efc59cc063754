package generate

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
)

// MaxPolyDegree bounds the primitive polynomial search; 2^n-1 is factored by
// trial division.
const MaxPolyDegree = 32

// poly is a polynomial over GF(2), bit i holding the coefficient of x^i.
type poly uint64

// mulMod returns a*b mod m for a, b of degree below n = deg(m).
func mulMod(a, b, m poly, n int) poly {
	var prod poly
	for b != 0 {
		if b&1 != 0 {
			prod ^= a
		}
		b >>= 1
		a <<= 1
		if (a>>uint(n))&1 != 0 {
			a ^= m
		}
	}
	return prod
}

// powX returns x^e mod m.
func powX(e uint64, m poly, n int) poly {
	result := poly(1)
	base := poly(2)
	for e != 0 {
		if e&1 != 0 {
			result = mulMod(result, base, m, n)
		}
		base = mulMod(base, base, m, n)
		e >>= 1
	}
	return result
}

func primeFactors(v uint64) []uint64 {
	var out []uint64
	for q := uint64(2); q*q <= v; q++ {
		if v%q != 0 {
			continue
		}
		out = append(out, q)
		for v%q == 0 {
			v /= q
		}
	}
	if v > 1 {
		out = append(out, v)
	}
	return out
}

// IsPrimitive reports whether the degree-n polynomial with coefficient mask m
// is primitive over GF(2), i.e. x has multiplicative order exactly 2^n-1
// modulo m.
func IsPrimitive(m uint64, n int) bool {
	if n < 2 || n > MaxPolyDegree {
		return false
	}
	return isPrimitive(m, n, primeFactors(uint64(1)<<uint(n)-1))
}

func isPrimitive(m uint64, n int, factors []uint64) bool {
	if bits.Len64(m)-1 != n || m&1 == 0 {
		return false
	}
	order := uint64(1)<<uint(n) - 1
	if powX(order, poly(m), n) != 1 {
		return false
	}
	for _, q := range factors {
		if powX(order/q, poly(m), n) == 1 {
			return false
		}
	}
	return true
}

// PrimitivePolynomial picks a primitive polynomial of degree n with the
// fewest possible terms, uniformly among those of that weight. The result is
// a coefficient mask with bit i holding the coefficient of x^i.
func PrimitivePolynomial(n int, rng *rand.Rand) (uint64, error) {
	if n < 2 || n > MaxPolyDegree {
		return 0, fmt.Errorf("generate: primitive polynomial degree %d outside [2, %d]", n, MaxPolyDegree)
	}
	ends := uint64(1)<<uint(n) | 1
	factors := primeFactors(uint64(1)<<uint(n) - 1)
	for middle := 1; middle <= n-1; middle += 2 {
		var found []uint64
		forEachCombination(n-1, middle, func(exps []int) {
			m := ends
			for _, e := range exps {
				m |= 1 << uint(e)
			}
			if isPrimitive(m, n, factors) {
				found = append(found, m)
			}
		})
		if len(found) > 0 {
			return found[rng.IntN(len(found))], nil
		}
	}
	return 0, fmt.Errorf("generate: no primitive polynomial of degree %d", n)
}

// forEachCombination calls fn with every k-subset of {1..hi} in ascending
// order. The slice is reused between calls.
func forEachCombination(hi, k int, fn func([]int)) {
	exps := make([]int, k)
	var rec func(pos, next int)
	rec = func(pos, next int) {
		if pos == k {
			fn(exps)
			return
		}
		for e := next; e <= hi-(k-pos-1); e++ {
			exps[pos] = e
			rec(pos+1, e+1)
		}
	}
	rec(0, 1)
}
