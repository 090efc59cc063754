package cmd

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/dataset"
	"github.com/spf13/cobra"
)

var (
	datasetMaxN  int
	datasetWidth int
	datasetForm  string
	datasetList  bool
)

var datasetCmd = &cobra.Command{
	Use:   "dataset FILE",
	Short: "Load the maximum-period dataset and re-check its periods",
	Long: `Load a dataset of maximum-period feedback functions (JSON keyed by width,
then form) and run the software period check on every function narrow enough
for it. Any function that is not maximal is reported and fails the command.

Examples:
  nlfsr dataset nlfsr_dataset.json
  nlfsr dataset nlfsr_dataset.json --width 16 --form 3,0,1 --list --format tex`,
	Args: cobra.ExactArgs(1),
	RunE: runDataset,
}

func init() {
	rootCmd.AddCommand(datasetCmd)

	datasetCmd.Flags().IntVar(&datasetMaxN, "max-n", 20, "widest register to simulate (at most 24)")
	datasetCmd.Flags().IntVar(&datasetWidth, "width", 0, "only groups of this width (0 = all)")
	datasetCmd.Flags().StringVar(&datasetForm, "form", "", "only groups of this form, e.g. 3,0,1 (needs --width)")
	datasetCmd.Flags().BoolVar(&datasetList, "list", false, "print every selected function")
	bindFormatFlag(datasetCmd.Flags())
}

func runDataset(cmd *cobra.Command, args []string) error {
	ds, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d functions in %d groups\n", ds.Count(), len(ds.Groups))

	if datasetForm != "" && datasetWidth == 0 {
		return fmt.Errorf("--form needs --width")
	}
	if datasetWidth > 0 {
		var form dataset.Form
		if datasetForm != "" {
			if form, err = dataset.ParseForm(datasetForm); err != nil {
				return err
			}
		}
		ds = &dataset.Dataset{Groups: ds.Select(datasetWidth, form)}
	}

	for _, g := range ds.Groups {
		fmt.Printf("  n=%-3d form %-8s %d functions\n", g.N, g.Form, len(g.Functions))
		if !datasetList {
			continue
		}
		for _, f := range g.Functions {
			out, err := render(f)
			if err != nil {
				return err
			}
			fmt.Printf("    %s\n", out)
		}
	}

	sum, err := ds.CheckPeriods(context.Background(), datasetMaxN, logger)
	if err != nil {
		return err
	}
	fmt.Printf("\nChecked %d, maximal %d, skipped %d (wider than %d bits)\n", sum.Checked, sum.Maximal, sum.Skipped, datasetMaxN)
	for _, r := range sum.Failures {
		out, err := render(r.Function)
		if err != nil {
			return err
		}
		fmt.Printf("  NOT MAXIMAL n=%d period %d: %s\n", r.N, r.Period, out)
	}
	if len(sum.Failures) > 0 {
		return fmt.Errorf("%d function(s) are not maximal", len(sum.Failures))
	}
	return nil
}
