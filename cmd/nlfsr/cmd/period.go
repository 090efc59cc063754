package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/oracle"
	"github.com/spf13/cobra"
)

var periodSetting feedback.Packed
var periodSettingFlag = newPackedValue(&periodSetting)

var periodCmd = &cobra.Command{
	Use:   "period [FUNCTION]",
	Short: "Compute the period of a feedback function in software",
	Long: `Run the software model of an n-bit register from state 1 and report the
cycle length. Give either a function in any notation or a packed setting
with --setting. Widths up to 24 bits are accepted.

Examples:
  nlfsr period -n 6 "x0 + x1 + x2 + x1*x2"
  nlfsr period -n 6 --setting 0x103`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPeriod,
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.Flags().Var(periodSettingFlag, "setting", "packed setting instead of a function")
	bindFormatFlag(periodCmd.Flags())
}

func runPeriod(cmd *cobra.Command, args []string) error {
	var f feedback.Function
	var err error
	switch {
	case periodSettingFlag.set && len(args) == 0:
		f, err = fbCfg.PackedToList(periodSetting)
	case !periodSettingFlag.set && len(args) == 1:
		f, err = parseFunction(args[0], fbCfg.N)
	default:
		return fmt.Errorf("give either a function or --setting")
	}
	if err != nil {
		return err
	}

	v := feedback.ListToVector(f)
	period, err := oracle.TestPeriod(fbCfg.N, v.Lin, v.Nlins)
	if err != nil {
		return err
	}

	out, err := render(f)
	if err != nil {
		return err
	}
	full := oracle.MaxPeriod(fbCfg.N)
	verdict := "not maximal"
	if period == full {
		verdict = "maximal"
	}

	fmt.Printf("Function: %s\n", out)
	if period == 0 {
		fmt.Printf("Period:   state 1 does not recur (%s)\n", verdict)
		return nil
	}
	fmt.Printf("Period:   %d of %d (%s)\n", period, full, verdict)
	return nil
}
