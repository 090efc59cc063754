package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/notation"
	"github.com/spf13/pflag"
)

var outputFormat string

func bindFormatFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&outputFormat, "format", "f", "plain", "function notation (plain, tex, list)")
}

func render(f feedback.Function) (string, error) {
	switch outputFormat {
	case "plain", "":
		return notation.Format(f), nil
	case "tex":
		return notation.FormatTeX(f), nil
	case "list":
		return notation.FormatList(f), nil
	}
	return "", fmt.Errorf("unknown format %q (want plain, tex or list)", outputFormat)
}

// parseFunction reads a function in any notation and checks its indices
// against the register width.
func parseFunction(s string, n int) (feedback.Function, error) {
	f, err := notation.Parse(s)
	if err != nil {
		return nil, err
	}
	for _, m := range f {
		for _, idx := range m {
			if idx >= n {
				return nil, fmt.Errorf("index %d does not fit a %d-bit register", idx, n)
			}
		}
	}
	return f, nil
}
