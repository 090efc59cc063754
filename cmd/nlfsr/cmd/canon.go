package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/spf13/cobra"
)

var canonCmd = &cobra.Command{
	Use:   "canon FUNCTION",
	Short: "Print the canonical member of a function and its reciprocal",
	Long: `A feedback function and its reciprocal describe registers with the same
period. canon prints both and the one kept in the dataset.

Examples:
  nlfsr canon -n 10 "x0 + x3 + x7 + x5*x8"`,
	Args: cobra.ExactArgs(1),
	RunE: runCanon,
}

func init() {
	rootCmd.AddCommand(canonCmd)
	bindFormatFlag(canonCmd.Flags())
}

func runCanon(cmd *cobra.Command, args []string) error {
	f, err := parseFunction(args[0], fbCfg.N)
	if err != nil {
		return err
	}

	for _, row := range []struct {
		label string
		f     feedback.Function
	}{
		{"Ordered:   ", feedback.OrderLex(f)},
		{"Reciprocal:", feedback.Reciprocal(fbCfg.N, f)},
		{"Canonical: ", feedback.SmallestLex(fbCfg.N, f)},
	} {
		out, err := render(row.f)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", row.label, out)
	}
	return nil
}
