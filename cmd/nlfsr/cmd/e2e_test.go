package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/device"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/flow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type e2eCase struct {
	name        string
	args        []string
	wantErr     bool
	wantContain []string
}

// resetFlags puts every package-level flag variable back to its default.
func resetFlags() {
	verbose = false
	fbCfg = feedback.DefaultConfig()
	outputFormat = "plain"

	linkType = "simulator"
	usbVID, usbPID, usbBaud = 0, 0, 0
	scenarios = []string{"all"}
	batchSize = 100
	needleCount = 1
	seed = 1
	directMode = false
	candidates = nil
	datasetPath = ""
	flowCfg = flow.DefaultConfig()
	deviceCfg = device.DefaultConfig()

	periodSetting = 0
	periodSettingFlag.set = false

	datasetMaxN = 20
	datasetWidth = 0
	datasetForm = ""
	datasetList = false

	clearChanged(rootCmd)
}

// clearChanged forgets which flags earlier runs set on cmd and its children.
func clearChanged(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, c := range cmd.Commands() {
		clearChanged(c)
	}
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args []string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func runE2E(t *testing.T, tests []e2eCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot: %s", want, output)
				}
			}
		})
	}
}

// TestVerifyE2E runs the verification scenarios on the simulator
func TestVerifyE2E(t *testing.T) {
	runE2E(t, []e2eCase{
		{
			name: "all scenarios over the command channel",
			args: []string{"verify", "-n", "8", "--size", "60", "--needles", "2"},
			wantContain: []string{
				"PASS basic: submitted 1, expected 1, observed 1",
				"PASS idle",
				"PASS needle-in-haystack: submitted 60, expected 2, observed 2, found 2, started 60",
				"PASS needles-only: submitted 60, expected 60, observed 60",
			},
		},
		{
			name: "direct mode",
			args: []string{"verify", "-n", "8", "--direct", "--size", "50", "--needles", "3"},
			wantContain: []string{
				"PASS direct needle-in-haystack: submitted 50, expected 3, observed 3",
				"PASS direct needles-only: submitted 50, expected 50",
			},
		},
		{
			name: "explicit batch",
			args: []string{"verify", "-n", "6", "--direct", "--scenario", "batch", "--candidates", "0x103,0x3"},
			wantContain: []string{
				"PASS direct batch: submitted 2, expected 1, observed 1, found 1, started 2",
			},
		},
		{
			name:        "direct mode with a cycle budget",
			args:        []string{"verify", "-n", "8", "--direct", "--scenario", "needles-only", "--size", "20", "--max-cycles", "1000000"},
			wantContain: []string{"PASS direct needles-only: submitted 20, expected 20"},
		},
		{
			name:    "direct mode cycle budget too small",
			args:    []string{"verify", "-n", "8", "--direct", "--scenario", "needles-only", "--size", "20", "--max-cycles", "50"},
			wantErr: true,
		},
		{
			name:    "direct mode honours --timeout-cycles",
			args:    []string{"verify", "-n", "8", "--direct", "--scenario", "needles-only", "--size", "20", "--timeout-cycles", "5"},
			wantErr: true,
		},
		{
			name:    "direct mode rejects --depth",
			args:    []string{"verify", "-n", "8", "--direct", "--depth", "32"},
			wantErr: true,
		},
		{
			name:    "direct mode rejects --threshold",
			args:    []string{"verify", "-n", "8", "--direct", "--threshold", "2"},
			wantErr: true,
		},
		{
			name:        "default flow flags after a rejected run",
			args:        []string{"verify", "-n", "8", "--direct", "--scenario", "needles-only", "--size", "10"},
			wantContain: []string{"PASS direct needles-only: submitted 10, expected 10"},
		},
		{
			name:    "unknown link",
			args:    []string{"verify", "--link", "serial"},
			wantErr: true,
		},
		{
			name:    "direct mode needs the simulator",
			args:    []string{"verify", "--direct", "--link", "usb"},
			wantErr: true,
		},
		{
			name:    "oracle width limit",
			args:    []string{"verify", "-n", "30"},
			wantErr: true,
		},
	})
}

// TestCodecE2E tests encode, decode and canon
func TestCodecE2E(t *testing.T) {
	runE2E(t, []e2eCase{
		{
			name: "encode",
			args: []string{"encode", "-n", "10", "x0 + x3 + x7 + x2*x5"},
			wantContain: []string{
				"Packed:   0x8244 (17 bits)",
				"Frame:    00 00 82 44 (4 bytes)",
			},
		},
		{
			name:        "encode list form",
			args:        []string{"encode", "-n", "10", "((0) (3) (7) (2 5))"},
			wantContain: []string{"0x8244"},
		},
		{
			name:    "encode without nonlinear term",
			args:    []string{"encode", "-n", "10", "x0 + x3"},
			wantErr: true,
		},
		{
			name:    "encode index past width",
			args:    []string{"encode", "-n", "6", "x0 + x3 + x7 + x2*x5"},
			wantErr: true,
		},
		{
			name:        "decode",
			args:        []string{"decode", "-n", "10", "0x8244"},
			wantContain: []string{"0x8244: x0 + x3 + x7 + x2*x5"},
		},
		{
			name:        "decode tex",
			args:        []string{"decode", "-n", "6", "--format", "tex", "0x103"},
			wantContain: []string{`0x103: x_{0} + x_{1} + x_{2} + x_{1} \cdot x_{2}`},
		},
		{
			name:    "decode garbage",
			args:    []string{"decode", "zz"},
			wantErr: true,
		},
		{
			name: "canon picks the smaller member",
			args: []string{"canon", "-n", "10", "x0 + x3 + x7 + x5*x8"},
			wantContain: []string{
				"Ordered:    x0 + x3 + x7 + x5*x8",
				"Canonical:  x0 + x3 + x7 + x2*x5",
			},
		},
	})
}

// TestPeriodE2E tests the software period command
func TestPeriodE2E(t *testing.T) {
	runE2E(t, []e2eCase{
		{
			name:        "maximal function",
			args:        []string{"period", "-n", "6", "x0 + x1 + x2 + x1*x2"},
			wantContain: []string{"Period:   63 of 63 (maximal)"},
		},
		{
			name:        "packed setting",
			args:        []string{"period", "-n", "6", "--setting", "0x3"},
			wantContain: []string{"Period:   14 of 63 (not maximal)"},
		},
		{
			name:    "neither function nor setting",
			args:    []string{"period", "-n", "6"},
			wantErr: true,
		},
		{
			name:    "too wide",
			args:    []string{"period", "-n", "40", "x0 + x1"},
			wantErr: true,
		},
	})
}

// TestDatasetE2E loads a small dataset file
func TestDatasetE2E(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(`{
  "5": {"1": {"functions": [[[0], [2]], [[0], [3]]]}},
  "6": {"2,1": {"functions": [[[0], [1], [2], [1, 2]]]}}
}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`{"6": {"2": {"functions": [[[0], [1], [2]]]}}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	runE2E(t, []e2eCase{
		{
			name: "all maximal",
			args: []string{"dataset", good},
			wantContain: []string{
				"Loaded 3 functions in 2 groups",
				"form 2,1",
				"Checked 3, maximal 3, skipped 0",
			},
		},
		{
			name: "filtered listing",
			args: []string{"dataset", good, "--width", "6", "--list"},
			wantContain: []string{
				"x0 + x1 + x2 + x1*x2",
				"Checked 1, maximal 1",
			},
		},
		{
			name:    "non-maximal entry",
			args:    []string{"dataset", bad},
			wantErr: true,
		},
		{
			name:    "missing file",
			args:    []string{"dataset", filepath.Join(dir, "none.json")},
			wantErr: true,
		},
		{
			name:        "dataset feeds the batch scenario",
			args:        []string{"verify", "-n", "6", "--direct", "--dataset", good},
			wantContain: []string{"PASS direct batch: submitted 1, expected 1, observed 1"},
		},
	})
}
