package feedback

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxSettingWidth is the widest packed setting that still fits a 64-bit
// command frame together with its flag byte.
const MaxSettingWidth = 56

var (
	// ErrMalformedFunction reports a feedback function that does not match the
	// configured register width, monomial count or arity.
	ErrMalformedFunction = errors.New("feedback: malformed function")

	// ErrEncodingMismatch reports a codec round trip that did not reproduce its
	// input.
	ErrEncodingMismatch = errors.New("feedback: encoding mismatch")

	// ErrInvalidConfig reports unusable register parameters.
	ErrInvalidConfig = errors.New("feedback: invalid config")
)

// Config holds the per-run register parameters shared by every
// representation of a candidate.
type Config struct {
	N          int // shift register width
	NumNlin    int // nonlinear monomials per candidate
	NumNlinIdx int // indices per nonlinear monomial
}

// DefaultConfig mirrors the parameters the device is usually built with.
func DefaultConfig() Config {
	return Config{
		N:          10,
		NumNlin:    1,
		NumNlinIdx: 2,
	}
}

// Validate checks that the parameters describe an encodable setting.
func (c Config) Validate() error {
	if c.N < 3 || c.N > 64 {
		return fmt.Errorf("%w: register width %d out of range [3, 64]", ErrInvalidConfig, c.N)
	}
	if c.NumNlin < 0 {
		return fmt.Errorf("%w: negative nonlinear monomial count %d", ErrInvalidConfig, c.NumNlin)
	}
	if c.NumNlin > 0 && c.NumNlinIdx < 2 {
		return fmt.Errorf("%w: nonlinear arity must be at least 2, got %d", ErrInvalidConfig, c.NumNlinIdx)
	}
	if w := c.SettingWidth(); w > MaxSettingWidth {
		return fmt.Errorf("%w: setting width %d exceeds %d bits", ErrInvalidConfig, w, MaxSettingWidth)
	}
	return nil
}

// IndexWidth is the width of one packed nonlinear index field,
// ceil(log2(N-1)).
func (c Config) IndexWidth() int {
	return bits.Len(uint(c.N - 2))
}

// SettingWidth is the number of bits in a packed candidate.
func (c Config) SettingWidth() int {
	return c.N - 1 + c.NumNlin*c.NumNlinIdx*c.IndexWidth()
}

// Mask has every bit of a packed candidate set.
func (c Config) Mask() Packed {
	w := c.SettingWidth()
	if w >= 64 {
		return ^Packed(0)
	}
	return Packed(1)<<uint(w) - 1
}

// MaxPeriod is the cycle length of a maximal register, 2^N-1.
func (c Config) MaxPeriod() uint64 {
	return 1<<uint(c.N) - 1
}

func (c Config) String() string {
	return fmt.Sprintf("n=%d nlin=%d arity=%d", c.N, c.NumNlin, c.NumNlinIdx)
}
