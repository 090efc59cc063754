package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	fbCfg   = feedback.DefaultConfig()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

var rootCmd = &cobra.Command{
	Use:   "nlfsr",
	Short: "Maximal-period NLFSR screening tools",
	Long: `Tools for the NLFSR period screening pipeline: encode and decode candidate
settings, compute periods in software, check the published dataset, and run
verification scenarios against the simulated or a USB-attached device.

Examples:
  nlfsr verify -n 8                                  # All scenarios on the simulator
  nlfsr period -n 6 "x0 + x1 + x2 + x1*x2"           # Period of one function
  nlfsr encode -n 10 "((0) (2) (7) (3 6))"           # Packed setting and frame
  nlfsr dataset nlfsr_dataset.json --max-n 20        # Bulk period check`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	bindFeedbackFlags(rootCmd.PersistentFlags(), &fbCfg)
}
