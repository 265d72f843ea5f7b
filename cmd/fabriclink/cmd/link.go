package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/fabriclink/internal/config"
	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/link"
	"github.com/OpenTraceLab/fabriclink/pkg/report"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

var (
	archFile     string
	deviceFile   string
	reportPath   string
	reportFormat string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link an architecture against an implemented device",
	Long: `Run the link sequence on an architecture description and a device file
and print a summary of the result. The summary goes to stdout unless --report
names a file.

The operating clock is taken from the architecture, the config file or
FABRICLINK_SIMULATION_CLOCK_FREQUENCY. When none sets it, it is derived from
the critical path of the device's timing arcs, or from
simulation.critical_path_delay when configured.

Examples:
  fabriclink link --arch arch.txt --device device.sexp
  fabriclink link --arch arch.txt --device device.sexp --report link.yaml
  fabriclink link --arch arch.txt --device device.sexp --format text -v`,
	Args: cobra.NoArgs,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringVarP(&archFile, "arch", "a", "", "architecture description (required)")
	linkCmd.Flags().StringVarP(&deviceFile, "device", "d", "", "device file (required)")
	linkCmd.Flags().StringVarP(&reportPath, "report", "r", "", "write the report to this file")
	linkCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "report format: yaml or text (default from config)")
	linkCmd.MarkFlagRequired("arch")
	linkCmd.MarkFlagRequired("device")
}

// applyConfig overrides the architecture's simulation settings and picks
// the timing source.
func applyConfig(cfg *config.Config, a *arch.Architecture) timing.Analyzer {
	sim := cfg.Simulation
	if sim.ClockFrequency > 0 {
		a.Sim.OperatingClockFrequency = sim.ClockFrequency
	}
	if sim.Slack >= 0 {
		a.Sim.OperatingClockFrequencySlack = sim.Slack
	}
	if sim.CriticalPathDelay > 0 {
		return timing.Fixed(sim.CriticalPathDelay)
	}
	return nil
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reportPath != "" {
		cfg.Report.Path = reportPath
	}
	if reportFormat != "" {
		cfg.Report.Format = reportFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(os.Stderr, cfg)

	a, err := arch.LoadFile(archFile)
	if err != nil {
		return errors.Wrapf(err, "load architecture %s", archFile)
	}
	dev, err := devdump.Load(deviceFile)
	if err != nil {
		return err
	}
	in := link.Inputs{Arch: a, Device: dev, Timing: applyConfig(cfg, a)}

	var s *spinner.Spinner
	if !cfg.Verbose {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Linking..."
		s.Start()
	}
	ctx, err := link.NewWorkspace(link.NewLinker(log)).Link(in)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	r := report.New(ctx)
	if cfg.Report.Path == "" {
		return r.Write(os.Stdout, cfg.Report.Format)
	}
	if err := r.Save(cfg.Report.Path, cfg.Report.Format); err != nil {
		return err
	}
	fmt.Printf("Linked %s with %s: %d multiplexers, %d unique switch blocks, clock %.6g Hz\n",
		deviceFile, archFile, len(r.Multiplexers), r.SwitchBlocks.Unique, r.Simulation.ClockFrequency)
	fmt.Printf("Wrote %s\n", cfg.Report.Path)
	return nil
}
