// Package dataset reads the published collection of maximum-period feedback
// functions. The file is a JSON object keyed by register width, then by form,
// each form holding a list of functions in list form:
//
//	{"16": {"3,0,1": {"functions": [[[0], [3], [9], [2, 5, 11]], ...]}}}
//
// A form counts monomials per degree: "3,0,1" is three linear taps, no
// quadratic terms and one cubic term. The linear count is accepted with or
// without the x_0 tap.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// ErrMalformed reports a dataset entry that does not match its keys.
var ErrMalformed = errors.New("dataset: malformed entry")

// Form is the monomial count per degree, degree 1 first.
type Form []int

// ParseForm parses a comma separated form key such as "3,0,1".
func ParseForm(s string) (Form, error) {
	parts := strings.Split(s, ",")
	form := make(Form, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: form %q", ErrMalformed, s)
		}
		form[i] = v
	}
	return form, nil
}

func (f Form) String() string {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Of returns the form of fn. The x_0 tap is not counted.
func Of(fn feedback.Function) Form {
	var form Form
	for _, m := range fn {
		if len(m) == 1 && m[0] == 0 {
			continue
		}
		for len(form) < len(m) {
			form = append(form, 0)
		}
		form[len(m)-1]++
	}
	return form
}

// Config returns the device layout holding functions of this form on an
// n-bit register: one slot per nonlinear monomial. The device has a single
// arity, so it reports false when the form mixes nonlinear degrees.
func (f Form) Config(n int) (feedback.Config, bool) {
	cfg := feedback.Config{N: n}
	for deg := 2; deg <= len(f); deg++ {
		if f[deg-1] == 0 {
			continue
		}
		if cfg.NumNlin > 0 {
			return feedback.Config{}, false
		}
		cfg.NumNlin = f[deg-1]
		cfg.NumNlinIdx = deg
	}
	return cfg, true
}

// Group is every function of one width and form.
type Group struct {
	N         int
	Form      Form
	Functions []feedback.Function
}

// Dataset holds the groups ordered by width, then form key.
type Dataset struct {
	Groups []Group
}

type rawEntry struct {
	Functions []feedback.Function `json:"functions"`
}

// Load decodes a dataset and checks every function against its width and
// form keys.
func Load(r io.Reader) (*Dataset, error) {
	var raw map[string]map[string]rawEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}

	ds := &Dataset{}
	for nKey, forms := range raw {
		n, err := strconv.Atoi(nKey)
		if err != nil || n < 2 || n > 64 {
			return nil, fmt.Errorf("%w: width %q", ErrMalformed, nKey)
		}
		for formKey, entry := range forms {
			form, err := ParseForm(formKey)
			if err != nil {
				return nil, err
			}
			for i, fn := range entry.Functions {
				if err := check(n, form, fn); err != nil {
					return nil, fmt.Errorf("%w: n=%d form %s function %d: %v", ErrMalformed, n, formKey, i, err)
				}
			}
			ds.Groups = append(ds.Groups, Group{N: n, Form: form, Functions: entry.Functions})
		}
	}
	slices.SortFunc(ds.Groups, func(a, b Group) int {
		if a.N != b.N {
			return a.N - b.N
		}
		return strings.Compare(a.Form.String(), b.Form.String())
	})
	return ds, nil
}

// LoadFile opens and decodes the dataset at path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func check(n int, form Form, fn feedback.Function) error {
	for _, m := range fn {
		if len(m) == 0 {
			return errors.New("empty monomial")
		}
		for _, idx := range m {
			if idx < 0 || idx >= n {
				return fmt.Errorf("index %d outside [0, %d)", idx, n)
			}
		}
	}
	if !matches(form, fn) {
		return fmt.Errorf("form %s, want %s", Of(fn), form)
	}
	return nil
}

func matches(form Form, fn feedback.Function) bool {
	got := Of(fn)
	if slices.Equal(trim(got), trim(form)) {
		return true
	}
	if len(got) == 0 {
		got = Form{0}
	}
	got[0]++
	return slices.Equal(trim(got), trim(form))
}

// trim drops trailing zero counts so "3,0" and "3" compare equal.
func trim(f Form) Form {
	for len(f) > 0 && f[len(f)-1] == 0 {
		f = f[:len(f)-1]
	}
	return f
}

// Count returns the total number of functions.
func (d *Dataset) Count() int {
	total := 0
	for _, g := range d.Groups {
		total += len(g.Functions)
	}
	return total
}

// Select returns the groups of width n. A nil form matches every form.
func (d *Dataset) Select(n int, form Form) []Group {
	var out []Group
	for _, g := range d.Groups {
		if g.N != n {
			continue
		}
		if form != nil && !slices.Equal(trim(g.Form), trim(form)) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Candidates encodes every function of width cfg.N that fits cfg's layout.
// Functions that do not fit are skipped.
func (d *Dataset) Candidates(cfg feedback.Config) ([]feedback.Packed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var out []feedback.Packed
	for _, g := range d.Select(cfg.N, nil) {
		for _, fn := range g.Functions {
			p, err := cfg.ListToPacked(fn)
			if err != nil {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}
