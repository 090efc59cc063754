package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode FUNCTION",
	Short: "Encode a feedback function as a device setting",
	Long: `Encode a feedback function into the packed setting the device consumes and
show the command-channel frame carrying it. The function must have the x_0 tap
and exactly --nlin nonlinear monomials of --arity indices.

Examples:
  nlfsr encode -n 10 "x0 + x3 + x7 + x2*x5"
  nlfsr encode -n 10 "((0) (3) (7) (2 5))"`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode SETTING...",
	Short: "Decode packed device settings",
	Long: `Decode one or more packed settings (hex, binary or decimal) back into
feedback functions.

Examples:
  nlfsr decode -n 10 0x8244
  nlfsr decode -n 6 --format tex 0x103 0x3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	bindFormatFlag(decodeCmd.Flags())
}

func runEncode(cmd *cobra.Command, args []string) error {
	f, err := parseFunction(args[0], fbCfg.N)
	if err != nil {
		return err
	}
	p, err := fbCfg.ListToPacked(f)
	if err != nil {
		return err
	}
	codec := channel.NewCodec(fbCfg)
	frame, err := codec.EncodeSetting(p)
	if err != nil {
		return err
	}

	fmt.Printf("Layout:   %s\n", fbCfg)
	fmt.Printf("Packed:   %s (%d bits)\n", p, fbCfg.SettingWidth())
	fmt.Printf("Frame:    % X (%d bytes)\n", frame, codec.Width)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		p, err := parsePacked(arg)
		if err != nil {
			return err
		}
		f, err := fbCfg.PackedToList(p)
		if err != nil {
			return err
		}
		out, err := render(f)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", p, out)
	}
	return nil
}
