package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/device"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/flow"
	"github.com/spf13/pflag"
)

// bindFeedbackFlags registers the register layout flags on fs.
func bindFeedbackFlags(fs *pflag.FlagSet, cfg *feedback.Config) {
	fs.IntVarP(&cfg.N, "bits", "n", cfg.N, "shift register width")
	fs.IntVar(&cfg.NumNlin, "nlin", cfg.NumNlin, "nonlinear monomials per candidate")
	fs.IntVar(&cfg.NumNlinIdx, "arity", cfg.NumNlinIdx, "indices per nonlinear monomial")
}

func bindFlowFlags(fs *pflag.FlagSet, cfg *flow.Config) {
	fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "device input queue depth")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "input queue programmable-empty level")
	fs.IntVar(&cfg.TimeoutCycles, "timeout-cycles", cfg.TimeoutCycles, "cycles to wait for one response")
	fs.Uint64Var(&cfg.MaxCycles, "max-cycles", cfg.MaxCycles, "abort a run after this many cycles (0 = unbounded)")
}

func bindDeviceFlags(fs *pflag.FlagSet, cfg *device.Config) {
	fs.IntVar(&cfg.Testers, "testers", cfg.Testers, "simulator: number of parallel testers")
	fs.IntVar(&cfg.OutDepth, "out-depth", cfg.OutDepth, "simulator: output queue depth")
	fs.IntVar(&cfg.CyclesPerByte, "cycles-per-byte", cfg.CyclesPerByte, "simulator: link speed in clock cycles per byte")
}

// parsePacked accepts a packed setting in any base strconv understands
// (0x..., 0b..., decimal).
func parsePacked(s string) (feedback.Packed, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid packed setting %q", s)
	}
	return feedback.Packed(v), nil
}

// packedValue is a pflag.Value holding one packed setting.
type packedValue struct {
	p   *feedback.Packed
	set bool
}

func newPackedValue(p *feedback.Packed) *packedValue {
	return &packedValue{p: p}
}

func (v *packedValue) Set(s string) error {
	p, err := parsePacked(s)
	if err != nil {
		return err
	}
	*v.p = p
	v.set = true
	return nil
}

func (v *packedValue) String() string {
	if v.p == nil {
		return "0x0"
	}
	return v.p.String()
}

func (v *packedValue) Type() string { return "packed" }

// packedListValue collects comma separated or repeated packed settings.
type packedListValue struct {
	list *[]feedback.Packed
}

func (v *packedListValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		p, err := parsePacked(part)
		if err != nil {
			return err
		}
		*v.list = append(*v.list, p)
	}
	return nil
}

func (v *packedListValue) String() string {
	if v.list == nil {
		return "[]"
	}
	parts := make([]string, len(*v.list))
	for i, p := range *v.list {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (v *packedListValue) Type() string { return "packedList" }
