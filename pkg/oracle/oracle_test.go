package oracle

import (
	"errors"
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

func TestParity(t *testing.T) {
	tests := []struct {
		v    uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{0b1011, 1},
		{0b1001, 0},
		{1 << 63, 1},
		{^uint64(0), 0},
	}
	for _, tt := range tests {
		if got := Parity(tt.v); got != tt.want {
			t.Errorf("Parity(%#x) = %d, want %d", tt.v, got, tt.want)
		}
	}

	rng := rand.New(rand.NewPCG(7, 8))
	for i := 0; i < 1000; i++ {
		v := rng.Uint64()
		if got, want := Parity(v), uint64(bits.OnesCount64(v)&1); got != want {
			t.Fatalf("Parity(%#x) = %d, want %d", v, got, want)
		}
	}
}

func TestTestPeriodLinear(t *testing.T) {
	tests := []struct {
		name string
		n    int
		lin  uint64
		want int
	}{
		{"taps 0 and 2", 5, 0b00101, 31},
		{"taps 0 and 3", 5, 0b01001, 31},
		{"taps 0 2 4", 5, 0b10101, 15},
		{"no x0 tap", 5, 0b10100, 0},
		{"no feedback", 5, 0, 0},
		{"n16 short cycle", 16, 1 | 1<<3 | 1<<12 | 1<<14 | 1<<15, 28658},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TestPeriod(tt.n, tt.lin, nil)
			if err != nil {
				t.Fatalf("TestPeriod() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("TestPeriod(%d, %b) = %d, want %d", tt.n, tt.lin, got, tt.want)
			}
		})
	}
}

func TestTestPeriodNonlinear(t *testing.T) {
	f := feedback.Function{{0}, {1}, {2}, {1, 2}}
	v := feedback.ListToVector(f)

	got, err := TestPeriod(6, v.Lin, v.Nlins)
	if err != nil {
		t.Fatalf("TestPeriod() error = %v", err)
	}
	if got != 63 {
		t.Fatalf("TestPeriod(%v) = %d, want 63", f, got)
	}

	rec := feedback.ListToVector(feedback.Reciprocal(6, f))
	got, err = TestPeriod(6, rec.Lin, rec.Nlins)
	if err != nil {
		t.Fatalf("TestPeriod(reciprocal) error = %v", err)
	}
	if got != 63 {
		t.Fatalf("reciprocal period = %d, want 63", got)
	}
}

func TestFakeMonomialCancelsFlippedTap(t *testing.T) {
	// x_0 + x_2 is maximal for n=5. Flipping in x_3 and adding x_3*x_3 must
	// leave the register unchanged.
	base, _ := TestPeriod(5, 0b00101, nil)
	got, err := TestPeriod(5, 0b01101, []uint64{1 << 3})
	if err != nil {
		t.Fatalf("TestPeriod() error = %v", err)
	}
	if got != base || got != 31 {
		t.Fatalf("TestPeriod() = %d, want %d", got, base)
	}
}

func TestTestPeriodPrecondition(t *testing.T) {
	for _, n := range []int{0, 25, 32} {
		if _, err := TestPeriod(n, 1, nil); !errors.Is(err, ErrPrecondition) {
			t.Errorf("TestPeriod(%d) error = %v, want ErrPrecondition", n, err)
		}
	}
}

func TestNewRejectsWideRegisters(t *testing.T) {
	if _, err := New(feedback.Config{N: 25}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("New(n=25) error = %v, want ErrPrecondition", err)
	}
	if _, err := New(feedback.Config{N: 2}); !errors.Is(err, feedback.ErrInvalidConfig) {
		t.Fatalf("New(n=2) error = %v, want ErrInvalidConfig", err)
	}
}

func TestOracleIsMaxPeriod(t *testing.T) {
	o, err := New(feedback.Config{N: 6, NumNlin: 1, NumNlinIdx: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		p    feedback.Packed
		want bool
	}{
		{"maximal nlfsr", 259, true},
		{"fake term cancels x1", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.IsMaxPeriod(tt.p)
			if err != nil {
				t.Fatalf("IsMaxPeriod() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsMaxPeriod(%s) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if _, err := o.IsMaxPeriod(o.Config().Mask() + 1); !errors.Is(err, feedback.ErrMalformedFunction) {
		t.Fatalf("IsMaxPeriod(too wide) error = %v, want ErrMalformedFunction", err)
	}
}
