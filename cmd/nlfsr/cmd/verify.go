package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"slices"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/dataset"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/device"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/flow"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/generate"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/link"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/verify"
	"github.com/spf13/cobra"
)

var (
	linkType      string
	usbVID        uint16
	usbPID        uint16
	usbBaud       uint32
	scenarios     []string
	batchSize     int
	needleCount   int
	seed          uint64
	directMode    bool
	candidates    []feedback.Packed
	datasetPath   string
	flowCfg       = flow.DefaultConfig()
	deviceCfg     = device.DefaultConfig()
	allScenarios  = []string{"basic", "idle", "needle", "needles-only"}
	directSupport = []string{"needle", "needles-only", "batch"}
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run verification scenarios against the screening pipeline",
	Long: `Drive the screening pipeline with generated batches and check that exactly
the maximal-period candidates come back and the device counters agree.

Scenarios:
  basic          one known-good candidate, read back after the device idles
  idle           counters after reset, cycle counter advancing
  needle         --size candidates with exactly --needles maximal ones
  needles-only   --size known-good candidates
  batch          the candidates given with --candidates and/or --dataset

The default link is the cycle-level simulator. --direct drives the
distributor registers instead of the command channel (simulator only).

Examples:
  nlfsr verify -n 8
  nlfsr verify -n 12 --scenario needle --size 500 --needles 5 --seed 7
  nlfsr verify -n 10 --link usb --vid 0x2e8a --pid 0x000a
  nlfsr verify -n 6 --direct --candidates 0x103,0x3`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	fs := verifyCmd.Flags()
	fs.StringVarP(&linkType, "link", "l", "simulator", "device link (simulator, usb)")
	fs.Uint16Var(&usbVID, "vid", 0, "usb: vendor ID")
	fs.Uint16Var(&usbPID, "pid", 0, "usb: product ID")
	fs.Uint32Var(&usbBaud, "baud", 0, "usb: send SET_LINE_CODING at this rate (0 = skip)")
	fs.StringSliceVarP(&scenarios, "scenario", "s", []string{"all"}, "scenarios to run (basic, idle, needle, needles-only, batch, all)")
	fs.IntVar(&batchSize, "size", 100, "candidates per generated batch")
	fs.IntVar(&needleCount, "needles", 1, "maximal candidates hidden in a needle batch")
	fs.Uint64Var(&seed, "seed", 1, "seed for candidate generation")
	fs.BoolVar(&directMode, "direct", false, "drive the distributor registers directly")
	fs.Var(&packedListValue{list: &candidates}, "candidates", "packed settings for the batch scenario")
	fs.StringVar(&datasetPath, "dataset", "", "add the dataset functions matching the layout to the batch scenario")
	bindFlowFlags(fs, &flowCfg)
	bindDeviceFlags(fs, &deviceCfg)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	o, err := oracle.New(fbCfg)
	if err != nil {
		return err
	}
	batch, err := userBatch()
	if err != nil {
		return err
	}
	names, err := expandScenarios(len(batch) > 0)
	if err != nil {
		return err
	}
	rng := generate.NewRand(generate.SeedBytes(seed))

	if verbose {
		fmt.Printf("Layout %s, link %s, seed %d\n", fbCfg, linkType, seed)
	}

	var run func(name string) (verify.Report, error)
	switch {
	case directMode:
		if linkType != "simulator" && linkType != "sim" {
			return fmt.Errorf("--direct needs the simulator link")
		}
		for _, name := range []string{"depth", "threshold"} {
			if cmd.Flags().Changed(name) {
				return fmt.Errorf("--%s sets the command channel input queue and has no effect with --direct", name)
			}
		}
		run, err = directRunner(ctx, o, rng, batch, cmd.Flags().Changed("timeout-cycles"))
	default:
		var cleanup func()
		run, cleanup, err = channelRunner(ctx, o, rng, batch)
		if cleanup != nil {
			defer cleanup()
		}
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		r, err := run(name)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", name, err)
			logger.Error("scenario failed", "scenario", name, "err", err, "report", r.String())
			continue
		}
		fmt.Printf("PASS %s\n", r)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenario(s) failed", failed, len(names))
	}
	return nil
}

// expandScenarios resolves "all" and checks the names against the mode.
func expandScenarios(haveBatch bool) ([]string, error) {
	var names []string
	for _, s := range scenarios {
		if s == "all" {
			for _, name := range allScenarios {
				if !directMode || slices.Contains(directSupport, name) {
					names = append(names, name)
				}
			}
			if haveBatch {
				names = append(names, "batch")
			}
			continue
		}
		if !slices.Contains(allScenarios, s) && s != "batch" {
			return nil, fmt.Errorf("unknown scenario %q", s)
		}
		if directMode && !slices.Contains(directSupport, s) {
			return nil, fmt.Errorf("scenario %q needs the command channel", s)
		}
		if s == "batch" && !haveBatch {
			return nil, fmt.Errorf("scenario batch needs --candidates or --dataset")
		}
		names = append(names, s)
	}
	return names, nil
}

func userBatch() ([]feedback.Packed, error) {
	batch := slices.Clone(candidates)
	if datasetPath == "" {
		return batch, nil
	}
	ds, err := dataset.LoadFile(datasetPath)
	if err != nil {
		return nil, err
	}
	fromDataset, err := ds.Candidates(fbCfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("dataset candidates", "path", datasetPath, "layout", fbCfg.String(), "count", len(fromDataset))
	return append(batch, fromDataset...), nil
}

func channelRunner(ctx context.Context, o *oracle.Oracle, rng *rand.Rand, batch []feedback.Packed) (func(string) (verify.Report, error), func(), error) {
	var port channel.Port
	var clock channel.Clock
	var cleanup func()

	switch linkType {
	case "simulator", "sim":
		dcfg := deviceCfg
		dcfg.Feedback = fbCfg
		dcfg.InDepth = flowCfg.Depth
		dcfg.InThreshold = flowCfg.Threshold
		top, err := device.NewTop(dcfg)
		if err != nil {
			return nil, nil, err
		}
		port, clock = top, top
		cleanup = func() {
			if top.Overflows() > 0 {
				logger.Warn("device dropped settings", "overflows", top.Overflows())
			}
		}
	case "usb":
		if usbVID == 0 && usbPID == 0 {
			return nil, nil, fmt.Errorf("--link usb needs --vid and --pid")
		}
		u, err := link.Open(usbVID, usbPID)
		if err != nil {
			return nil, nil, err
		}
		if usbBaud > 0 {
			if err := u.SetLineCoding(0, usbBaud); err != nil {
				u.Close()
				return nil, nil, err
			}
		}
		port, clock = u, u
		cleanup = func() { u.Close() }
	default:
		return nil, nil, fmt.Errorf("unsupported link type: %s", linkType)
	}

	client := channel.NewClient(port, clock, channel.NewCodec(fbCfg))
	client.TimeoutCycles = flowCfg.TimeoutCycles
	client.Logger = logger

	s := verify.NewSession(client, o, rng)
	s.Flow = flowCfg
	s.Logger = logger

	run := func(name string) (verify.Report, error) {
		switch name {
		case "basic":
			return s.Basic(ctx)
		case "idle":
			return s.Idle(ctx)
		case "needle":
			return s.NeedleInHaystack(ctx, batchSize, needleCount)
		case "needles-only":
			return s.NeedlesOnly(ctx, batchSize)
		default:
			return s.Batch(ctx, batch)
		}
	}
	return run, cleanup, nil
}

// directRunner keeps the session's stall timeout, sized to one tester run,
// unless --timeout-cycles was given.
func directRunner(ctx context.Context, o *oracle.Oracle, rng *rand.Rand, batch []feedback.Packed, timeoutSet bool) (func(string) (verify.Report, error), error) {
	dcfg := deviceCfg
	dcfg.Feedback = fbCfg
	if err := dcfg.Validate(); err != nil {
		return nil, err
	}
	dist := device.NewDistributor(fbCfg, dcfg.Testers, dcfg.OutDepth)

	s := verify.NewDirectSession(dist, o, rng)
	s.Flow.MaxCycles = flowCfg.MaxCycles
	if timeoutSet {
		s.Flow.TimeoutCycles = flowCfg.TimeoutCycles
	}
	s.Logger = logger

	run := func(name string) (verify.Report, error) {
		switch name {
		case "needle":
			return s.NeedleInHaystack(ctx, batchSize, needleCount)
		case "needles-only":
			return s.NeedlesOnly(ctx, batchSize)
		default:
			return s.Batch(ctx, batch)
		}
	}
	return run, nil
}
