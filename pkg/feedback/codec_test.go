package feedback

import (
	"errors"
	"math/rand/v2"
	"testing"
)

// randomFunction builds a well-formed list form for cfg in shuffled order.
// With distinct set, nonlinear monomials never repeat an index.
func randomFunction(rng *rand.Rand, cfg Config, distinct bool) Function {
	f := Function{{0}}
	for i := 1; i < cfg.N; i++ {
		if rng.IntN(2) == 1 {
			f = append(f, Monomial{i})
		}
	}
	for i := 0; i < cfg.NumNlin; i++ {
		m := make(Monomial, cfg.NumNlinIdx)
		if distinct {
			perm := rng.Perm(cfg.N - 1)
			for j := range m {
				m[j] = perm[j] + 1
			}
		} else {
			for j := range m {
				m[j] = rng.IntN(cfg.N-1) + 1
			}
		}
		f = append(f, m)
	}
	rng.Shuffle(len(f), func(i, j int) { f[i], f[j] = f[j], f[i] })
	return f
}

func TestConfigWidths(t *testing.T) {
	tests := []struct {
		cfg        Config
		indexWidth int
		width      int
	}{
		{Config{N: 5, NumNlin: 1, NumNlinIdx: 2}, 2, 8},
		{Config{N: 6, NumNlin: 1, NumNlinIdx: 2}, 3, 11},
		{Config{N: 10, NumNlin: 1, NumNlinIdx: 2}, 4, 17},
		{Config{N: 17, NumNlin: 2, NumNlinIdx: 3}, 4, 40},
		{Config{N: 24, NumNlin: 0, NumNlinIdx: 0}, 5, 23},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.String(), func(t *testing.T) {
			if err := tt.cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := tt.cfg.IndexWidth(); got != tt.indexWidth {
				t.Errorf("IndexWidth() = %d, want %d", got, tt.indexWidth)
			}
			if got := tt.cfg.SettingWidth(); got != tt.width {
				t.Errorf("SettingWidth() = %d, want %d", got, tt.width)
			}
		})
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"too narrow", Config{N: 2}},
		{"negative nlin", Config{N: 8, NumNlin: -1}},
		{"unary nonlinear", Config{N: 8, NumNlin: 1, NumNlinIdx: 1}},
		{"frame overflow", Config{N: 32, NumNlin: 4, NumNlinIdx: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestListToVector(t *testing.T) {
	f := Function{{0}, {2}, {2}, {5}, {1, 3}, {1, 3}}
	v := ListToVector(f)

	if v.Lin != 0b100001 {
		t.Errorf("Lin = %b, want 100001", v.Lin)
	}
	if len(v.Nlins) != 2 || v.Nlins[0] != 0b1010 || v.Nlins[1] != 0b1010 {
		t.Errorf("Nlins = %v, want two copies of 0b1010", v.Nlins)
	}
}

func TestVectorToList(t *testing.T) {
	got := VectorToList(6, Vector{Lin: 0b100101, Nlins: []uint64{0b010010}})
	want := Function{{0}, {2}, {5}, {1, 4}}
	if !Equal(got, want) {
		t.Fatalf("VectorToList() = %v, want %v", got, want)
	}
}

func TestVectorFoldsRepeatedIndex(t *testing.T) {
	tests := []struct {
		name string
		f    Function
		want Function
	}{
		{"square", Function{{0}, {3, 3}}, Function{{0}, {3}}},
		{"square beside a tap", Function{{0}, {3}, {3, 3}}, Function{{0}, {3}, {3}}},
		{"cube with repeat", Function{{0}, {1, 2, 1}}, Function{{0}, {1, 2}}},
		{"distinct product", Function{{0}, {1, 2}}, Function{{0}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ListToVector(tt.f)
			if len(v.Nlins) != 1 {
				t.Fatalf("Nlins = %v, want one mask", v.Nlins)
			}
			got := VectorToList(6, v)
			if !Equal(OrderLex(got), OrderLex(tt.want)) {
				t.Fatalf("VectorToList(ListToVector(%v)) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestListToPackedKnownValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		f    Function
		want Packed
	}{
		{
			name: "n10 one quadratic term",
			cfg:  Config{N: 10, NumNlin: 1, NumNlinIdx: 2},
			f:    Function{{0}, {3}, {7}, {2, 5}},
			want: 33348,
		},
		{
			name: "n6 maximal nlfsr",
			cfg:  Config{N: 6, NumNlin: 1, NumNlinIdx: 2},
			f:    Function{{0}, {1}, {2}, {1, 2}},
			want: 259,
		},
		{
			name: "order independent",
			cfg:  Config{N: 10, NumNlin: 1, NumNlinIdx: 2},
			f:    Function{{5, 2}, {7}, {0}, {3}},
			want: 33348,
		},
		{
			name: "purely linear",
			cfg:  Config{N: 5},
			f:    Function{{0}, {2}},
			want: 0b0010,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ListToPacked(tt.f)
			if err != nil {
				t.Fatalf("ListToPacked() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ListToPacked() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestListToPackedRejectsMalformed(t *testing.T) {
	cfg := Config{N: 8, NumNlin: 1, NumNlinIdx: 2}

	tests := []struct {
		name string
		f    Function
	}{
		{"missing x0", Function{{3}, {1, 2}}},
		{"wrong arity", Function{{0}, {1, 2, 3}}},
		{"too many nonlinear", Function{{0}, {1, 2}, {3, 4}}},
		{"too few nonlinear", Function{{0}, {3}}},
		{"nonlinear x0", Function{{0}, {0, 2}}},
		{"index out of range", Function{{0}, {8}, {1, 2}}},
		{"empty monomial", Function{{0}, {}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cfg.ListToPacked(tt.f); !errors.Is(err, ErrMalformedFunction) {
				t.Fatalf("ListToPacked(%v) error = %v, want ErrMalformedFunction", tt.f, err)
			}
		})
	}
}

func TestPackedToList(t *testing.T) {
	cfg := Config{N: 10, NumNlin: 1, NumNlinIdx: 2}

	got, err := cfg.PackedToList(33348)
	if err != nil {
		t.Fatalf("PackedToList() error = %v", err)
	}
	want := Function{{0}, {3}, {7}, {2, 5}}
	if !Equal(got, want) {
		t.Fatalf("PackedToList() = %v, want %v", got, want)
	}

	if _, err := cfg.PackedToList(cfg.Mask() + 1); !errors.Is(err, ErrMalformedFunction) {
		t.Errorf("PackedToList(too wide) error = %v, want ErrMalformedFunction", err)
	}

	// Field value 15 decodes to index 16, outside a 10-bit register.
	if _, err := cfg.PackedToList(Packed(15) << 9); !errors.Is(err, ErrMalformedFunction) {
		t.Errorf("PackedToList(index overflow) error = %v, want ErrMalformedFunction", err)
	}
}

func TestPackedRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for n := 4; n <= 24; n++ {
		for _, shape := range [][2]int{{0, 0}, {1, 2}, {2, 2}, {1, 3}} {
			cfg := Config{N: n, NumNlin: shape[0], NumNlinIdx: shape[1]}
			for trial := 0; trial < 20; trial++ {
				f := randomFunction(rng, cfg, false)

				p, err := cfg.ListToPacked(f)
				if err != nil {
					t.Fatalf("%s: ListToPacked(%v) error = %v", cfg, f, err)
				}
				got, err := cfg.PackedToList(p)
				if err != nil {
					t.Fatalf("%s: PackedToList(%s) error = %v", cfg, p, err)
				}
				if want := OrderLex(f); !Equal(got, want) {
					t.Fatalf("%s: PackedToList(ListToPacked(%v)) = %v, want %v", cfg, f, got, want)
				}

				again, err := cfg.ListToPacked(got)
				if err != nil || again != p {
					t.Fatalf("%s: ListToPacked(PackedToList(%s)) = %s, %v", cfg, p, again, err)
				}
				if err := cfg.CheckRoundTrip(p); err != nil {
					t.Fatalf("%s: CheckRoundTrip(%s) error = %v", cfg, p, err)
				}
			}
		}
	}
}

func TestVectorRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for n := 4; n <= 24; n++ {
		cfg := Config{N: n, NumNlin: 2, NumNlinIdx: 2}
		for trial := 0; trial < 20; trial++ {
			f := randomFunction(rng, cfg, true)
			got := OrderLex(VectorToList(n, ListToVector(f)))
			if want := OrderLex(f); !Equal(got, want) {
				t.Fatalf("n=%d: VectorToList(ListToVector(%v)) = %v, want %v", n, f, got, want)
			}
		}
	}
}

func TestCanonicalSortsFields(t *testing.T) {
	cfg := Config{N: 10, NumNlin: 2, NumNlinIdx: 2}
	w := cfg.IndexWidth()

	// Monomials stored as [6 5] then [2 1]: neither slot nor field order is
	// canonical.
	raw := Packed(1) |
		Packed(5)<<uint(cfg.N-1) | Packed(4)<<uint(cfg.N-1+w) |
		Packed(1)<<uint(cfg.N-1+2*w) | Packed(0)<<uint(cfg.N-1+3*w)

	canon, err := cfg.Canonical(raw)
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	if canon == raw {
		t.Fatalf("Canonical() left non-canonical setting %s unchanged", raw)
	}
	if err := cfg.CheckRoundTrip(raw); err != nil {
		t.Fatalf("CheckRoundTrip(raw) error = %v", err)
	}

	a, _ := cfg.PackedToList(raw)
	b, _ := cfg.PackedToList(canon)
	if !Equal(a, b) {
		t.Fatalf("raw decodes to %v, canonical to %v", a, b)
	}
}
