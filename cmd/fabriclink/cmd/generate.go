package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/fabricgen"
)

var (
	genOutput        string
	genArchOutput    string
	genWidth         int
	genHeight        int
	genChannelWidth  int
	genBidirectional bool
	genDirectRouting bool
	genNoDesign      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic device",
	Long: `Generate an island-style device with length-1 routing and write it as a
device file. The matching architecture description can be written with
--arch-out.

Examples:
  fabriclink generate -o device.sexp
  fabriclink generate -o big.sexp --width 10 --height 8 --channel-width 8
  fabriclink generate -o bi.sexp --bidirectional     # rejected by link`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	def := fabricgen.DefaultParams()
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "device file to write (required)")
	generateCmd.Flags().StringVar(&genArchOutput, "arch-out", "", "also write the architecture description")
	generateCmd.Flags().IntVar(&genWidth, "width", def.Width, "grid width including the IO ring")
	generateCmd.Flags().IntVar(&genHeight, "height", def.Height, "grid height including the IO ring")
	generateCmd.Flags().IntVar(&genChannelWidth, "channel-width", def.ChannelWidth, "tracks per channel (even)")
	generateCmd.Flags().BoolVar(&genBidirectional, "bidirectional", false, "make every track bi-directional")
	generateCmd.Flags().BoolVar(&genDirectRouting, "direct-routing", false, "route the carry chain through the routing graph")
	generateCmd.Flags().BoolVar(&genNoDesign, "no-design", false, "leave the device empty (no placement, routing or timing)")
	generateCmd.MarkFlagRequired("output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p := fabricgen.Params{
		Width:         genWidth,
		Height:        genHeight,
		ChannelWidth:  genChannelWidth,
		Bidirectional: genBidirectional,
		DirectRouting: genDirectRouting,
		WithDesign:    !genNoDesign,
	}
	dev, err := fabricgen.Generate(p)
	if err != nil {
		return err
	}
	if err := devdump.Save(genOutput, dev); err != nil {
		return err
	}
	fmt.Printf("Wrote %s: %dx%d grid, %d nodes, %d edges\n",
		genOutput, dev.Grid.Width(), dev.Grid.Height(), dev.Graph.NumNodes(), dev.Graph.NumEdges())

	if genArchOutput != "" {
		if err := os.WriteFile(genArchOutput, []byte(fabricgen.ArchText), 0o644); err != nil {
			return errors.Wrap(err, "write architecture")
		}
		fmt.Printf("Wrote %s\n", genArchOutput)
	}
	return nil
}
