package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

const sample = `{
  "6": {
    "2,1": {"functions": [[[0], [1], [2], [1, 2]]]},
    "2":   {"functions": [[[0], [1], [2]]]}
  },
  "5": {
    "1": {"functions": [[[0], [2]], [[0], [3]]]}
  },
  "30": {
    "3": {"functions": [[[0], [1], [4], [6]]]}
  }
}`

func load(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return ds
}

func TestLoad(t *testing.T) {
	ds := load(t)

	if got := ds.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}

	var order []string
	for _, g := range ds.Groups {
		order = append(order, g.Form.String())
	}
	if got, want := strings.Join(order, " "), "1 2 2,1 3"; got != want {
		t.Errorf("group order = %q, want %q", got, want)
	}

	if got := ds.Select(6, nil); len(got) != 2 {
		t.Errorf("Select(6, nil) = %d groups, want 2", len(got))
	}
	if got := ds.Select(6, Form{2, 1}); len(got) != 1 || len(got[0].Functions) != 1 {
		t.Errorf("Select(6, 2,1) = %v", got)
	}
	if got := ds.Select(7, nil); len(got) != 0 {
		t.Errorf("Select(7, nil) = %v, want none", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad json", `{"6": `},
		{"width key", `{"six": {"1": {"functions": []}}}`},
		{"form key", `{"6": {"a,b": {"functions": []}}}`},
		{"index out of range", `{"6": {"1": {"functions": [[[0], [6]]]}}}`},
		{"form mismatch", `{"6": {"1,1": {"functions": [[[0], [1], [2]]]}}}`},
		{"empty monomial", `{"6": {"1": {"functions": [[[0], []]]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("Load() succeeded, want error")
			}
		})
	}

	if _, err := Load(strings.NewReader(`{"6": {"1": {"functions": [[[0], [6]]]}}}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("Load() error = %v, want ErrMalformed", err)
	}
}

func TestFormCountsX0EitherWay(t *testing.T) {
	fn := `[[0], [1], [2], [1, 2]]`
	for _, key := range []string{"2,1", "3,1"} {
		if _, err := Load(strings.NewReader(`{"6": {"` + key + `": {"functions": [` + fn + `]}}}`)); err != nil {
			t.Errorf("form %s: Load() error = %v", key, err)
		}
	}
}

func TestFormConfig(t *testing.T) {
	tests := []struct {
		form   Form
		n      int
		want   feedback.Config
		wantOK bool
	}{
		{Form{2, 1}, 6, feedback.Config{N: 6, NumNlin: 1, NumNlinIdx: 2}, true},
		{Form{3, 0, 1}, 16, feedback.Config{N: 16, NumNlin: 1, NumNlinIdx: 3}, true},
		{Form{4}, 8, feedback.Config{N: 8}, true},
		{Form{1, 1, 1}, 8, feedback.Config{}, false},
	}
	for _, tt := range tests {
		got, ok := tt.form.Config(tt.n)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Form(%s).Config(%d) = %v, %v; want %v, %v", tt.form, tt.n, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCheckPeriods(t *testing.T) {
	ds := load(t)

	sum, err := ds.CheckPeriods(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("CheckPeriods() error = %v", err)
	}
	if sum.Checked != 4 || sum.Maximal != 3 || sum.Skipped != 1 {
		t.Errorf("summary = %+v, want 4 checked, 3 maximal, 1 skipped", sum)
	}
	if len(sum.Failures) != 1 {
		t.Fatalf("failures = %v, want one", sum.Failures)
	}
	if f := sum.Failures[0]; f.N != 6 || f.Period != 31 {
		t.Errorf("failure = %+v, want n=6 period 31", f)
	}

	sum, err = ds.CheckPeriods(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("CheckPeriods(5) error = %v", err)
	}
	if sum.Checked != 2 || sum.Skipped != 3 {
		t.Errorf("summary = %+v, want 2 checked, 3 skipped", sum)
	}
}

func TestCheckPeriodsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := load(t).CheckPeriods(ctx, 0, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("CheckPeriods() error = %v, want context.Canceled", err)
	}
}

func TestCandidates(t *testing.T) {
	ds := load(t)

	got, err := ds.Candidates(feedback.Config{N: 6, NumNlin: 1, NumNlinIdx: 2})
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(got) != 1 || got[0] != 259 {
		t.Errorf("Candidates() = %v, want [0x103]", got)
	}

	if _, err := ds.Candidates(feedback.Config{N: 1}); !errors.Is(err, feedback.ErrInvalidConfig) {
		t.Errorf("Candidates(bad config) error = %v, want ErrInvalidConfig", err)
	}
}
