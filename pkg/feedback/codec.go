package feedback

import "fmt"

// ListToVector folds the linear taps of f into one mask by XOR and appends a
// mask per nonlinear monomial. Duplicate monomials are kept.
//
// Index masks are sets, so a monomial that repeats an index collapses: x_k·x_k
// becomes the one-bit mask of x_k and VectorToList returns it as {k}, a
// nonlinear entry of arity one. The vector round trip is exact up to OrderLex
// only for monomials of distinct indices.
func ListToVector(f Function) Vector {
	var v Vector
	for _, m := range f {
		if len(m) == 1 {
			v.Lin ^= 1 << uint(m[0])
			continue
		}
		var mask uint64
		for _, idx := range m {
			mask |= 1 << uint(idx)
		}
		v.Nlins = append(v.Nlins, mask)
	}
	return v
}

// VectorToList expands the vector form of an n-bit register back into list
// form: linear taps first in index order, then one monomial per mask.
func VectorToList(n int, v Vector) Function {
	var f Function
	for i := 0; i < n; i++ {
		if (v.Lin>>uint(i))&1 != 0 {
			f = append(f, Monomial{i})
		}
	}
	for _, mask := range v.Nlins {
		var m Monomial
		for i := 0; i < n; i++ {
			if (mask>>uint(i))&1 != 0 {
				m = append(m, i)
			}
		}
		f = append(f, m)
	}
	return f
}

// ListToPacked encodes f for the device. The function is put in OrderLex form
// first so the encoding does not depend on term or index order. It must carry
// the x_0 tap, exactly NumNlin nonlinear monomials of NumNlinIdx indices, and
// nonlinear indices in [1, N).
func (c Config) ListToPacked(f Function) (Packed, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	var lin uint64
	var nlins []Monomial
	for _, m := range OrderLex(f) {
		switch len(m) {
		case 0:
			return 0, fmt.Errorf("%w: empty monomial", ErrMalformedFunction)
		case 1:
			if m[0] < 0 || m[0] >= c.N {
				return 0, fmt.Errorf("%w: linear index %d out of range [0, %d)", ErrMalformedFunction, m[0], c.N)
			}
			lin ^= 1 << uint(m[0])
		default:
			if len(m) != c.NumNlinIdx {
				return 0, fmt.Errorf("%w: monomial %v has arity %d, want %d", ErrMalformedFunction, m, len(m), c.NumNlinIdx)
			}
			for _, idx := range m {
				if idx < 1 || idx >= c.N {
					return 0, fmt.Errorf("%w: nonlinear index %d out of range [1, %d)", ErrMalformedFunction, idx, c.N)
				}
			}
			nlins = append(nlins, m)
		}
	}
	if lin&1 == 0 {
		return 0, fmt.Errorf("%w: x_0 tap is implicit in the packed form and must be present", ErrMalformedFunction)
	}
	if len(nlins) != c.NumNlin {
		return 0, fmt.Errorf("%w: %d nonlinear monomials, want %d", ErrMalformedFunction, len(nlins), c.NumNlin)
	}

	p := Packed(lin >> 1)
	w := c.IndexWidth()
	for i, m := range nlins {
		for j, idx := range m {
			shift := c.N - 1 + w*(i*c.NumNlinIdx+j)
			p |= Packed(idx-1) << uint(shift)
		}
	}
	return p, nil
}

// PackedToList decodes a device setting into OrderLex list form, restoring
// the implicit x_0 tap.
func (c Config) PackedToList(p Packed) (Function, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if p&^c.Mask() != 0 {
		return nil, fmt.Errorf("%w: %s wider than %d bits", ErrMalformedFunction, p, c.SettingWidth())
	}

	v := uint64(p)<<1 | 1
	var f Function
	for i := 0; i < c.N; i++ {
		if (v>>uint(i))&1 != 0 {
			f = append(f, Monomial{i})
		}
	}

	w := c.IndexWidth()
	fieldMask := uint64(1)<<uint(w) - 1
	for i := 0; i < c.NumNlin; i++ {
		m := make(Monomial, c.NumNlinIdx)
		for j := range m {
			shift := c.N + w*(i*c.NumNlinIdx+j)
			m[j] = int((v>>uint(shift))&fieldMask) + 1
			if m[j] >= c.N {
				return nil, fmt.Errorf("%w: %s holds nonlinear index %d, register has %d bits", ErrMalformedFunction, p, m[j], c.N)
			}
		}
		f = append(f, m)
	}
	return OrderLex(f), nil
}

// PackedToVector decodes a device setting straight into simulation form.
func (c Config) PackedToVector(p Packed) (Vector, error) {
	f, err := c.PackedToList(p)
	if err != nil {
		return Vector{}, err
	}
	return ListToVector(f), nil
}

// Canonical re-encodes p with its nonlinear fields in OrderLex order. Settings
// produced by ListToPacked are already canonical.
func (c Config) Canonical(p Packed) (Packed, error) {
	f, err := c.PackedToList(p)
	if err != nil {
		return 0, err
	}
	return c.ListToPacked(f)
}

// CheckRoundTrip decodes p, re-encodes it and decodes again. Both decodings
// must name the same function, and a canonical p must re-encode to itself;
// anything else fails with ErrEncodingMismatch.
func (c Config) CheckRoundTrip(p Packed) error {
	f, err := c.PackedToList(p)
	if err != nil {
		return err
	}
	q, err := c.ListToPacked(f)
	if err != nil {
		return fmt.Errorf("%w: re-encoding %v: %v", ErrEncodingMismatch, f, err)
	}
	g, err := c.PackedToList(q)
	if err != nil {
		return fmt.Errorf("%w: decoding re-encoded %s: %v", ErrEncodingMismatch, q, err)
	}
	if !Equal(f, g) {
		return fmt.Errorf("%w: %s decoded to %v but its re-encoding %s decoded to %v", ErrEncodingMismatch, p, f, q, g)
	}
	if r, err := c.ListToPacked(g); err != nil || r != q {
		return fmt.Errorf("%w: canonical setting %s did not re-encode to itself", ErrEncodingMismatch, q)
	}
	return nil
}
