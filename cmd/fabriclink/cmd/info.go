package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

var infoArch string

var infoCmd = &cobra.Command{
	Use:   "info [device-file]",
	Short: "Show architecture and device statistics",
	Long: `Print the circuit models, switch bindings, directs and pb types of an
architecture, and the grid, routing graph and design statistics of a device
file, without linking them.

Examples:
  fabriclink info device.sexp
  fabriclink info --arch arch.txt
  fabriclink info --arch arch.txt device.sexp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoArch, "arch", "a", "", "architecture description")
}

func runInfo(cmd *cobra.Command, args []string) error {
	if infoArch == "" && len(args) == 0 {
		return errors.New("info: nothing to show, give a device file or --arch")
	}
	if infoArch != "" {
		if err := printArch(infoArch); err != nil {
			return err
		}
	}
	if len(args) == 1 {
		return printDevice(args[0])
	}
	return nil
}

func printArch(path string) error {
	a, err := arch.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "load architecture %s", path)
	}
	fmt.Printf("Architecture: %s\n", path)
	fmt.Printf("  Circuit models:\n")
	for _, m := range a.Circuits.Models() {
		fmt.Printf("    %-14s %s\n", m.Name, m.Type)
	}
	fmt.Printf("  Switches:\n")
	for _, name := range a.SwitchNames() {
		fmt.Printf("    %-14s -> %s\n", name, a.Switches[name])
	}
	for _, d := range a.Directs {
		fmt.Printf("  Direct %s: %s.%s -> %s.%s (%+d,%+d)\n",
			d.Name, d.FromTile, d.FromPort, d.ToTile, d.ToPort, d.XOffset, d.YOffset)
	}
	for _, p := range a.PbTypes {
		n := 0
		arch.Walk(p, func(*arch.PbType) { n++ })
		fmt.Printf("  Pb type %s: %d pb types in hierarchy\n", p.Name, n)
	}
	if a.Sim.FrequencyFromTiming() {
		fmt.Printf("  Clock: from timing, slack %g\n", a.Sim.OperatingClockFrequencySlack)
	} else {
		fmt.Printf("  Clock: %g Hz\n", a.Sim.OperatingClockFrequency)
	}
	return nil
}

func printDevice(path string) error {
	dev, err := devdump.Load(path)
	if err != nil {
		return err
	}
	g := dev.Graph

	counts := make(map[rrgraph.NodeType]int)
	bidir := 0
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(rrgraph.NodeID(i))
		counts[n.Type]++
		if n.Type.IsChannel() && n.Direction == rrgraph.DirBi {
			bidir++
		}
	}

	fmt.Printf("Device: %s\n", path)
	fmt.Printf("  Grid:       %dx%d\n", dev.Grid.Width(), dev.Grid.Height())
	for _, tt := range dev.Grid.TileTypes() {
		fmt.Printf("    %-8s %d tiles\n", tt.Name, len(dev.Grid.Locations(tt.Name)))
	}
	fmt.Printf("  Nodes:      %d\n", g.NumNodes())
	for _, t := range []rrgraph.NodeType{rrgraph.NodeChanX, rrgraph.NodeChanY, rrgraph.NodeOPin, rrgraph.NodeIPin} {
		fmt.Printf("    %-8s %d\n", t, counts[t])
	}
	fmt.Printf("  Edges:      %d\n", g.NumEdges())
	fmt.Printf("  Switches:   %d\n", len(g.Switches()))
	fmt.Printf("  Segments:   %d\n", len(g.Segments()))
	if bidir > 0 {
		fmt.Printf("  Bi-directional tracks: %d (not supported by link)\n", bidir)
	}
	fmt.Printf("  Blocks:     %d\n", len(dev.Clustering.Blocks))
	fmt.Printf("  Nets:       %d\n", len(dev.Clustering.Nets))
	fmt.Printf("  Timing arcs: %d\n", len(dev.Timing))
	return nil
}
