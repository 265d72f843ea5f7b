// Package report summarises a link context as YAML or plain text.
package report

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/OpenTraceLab/fabriclink/pkg/link"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgsb"
)

// Report is the exported view of a link.
type Report struct {
	GSBArray     GSBArrayInfo    `yaml:"gsb_array"`
	SwitchBlocks SwitchBlockInfo `yaml:"switch_blocks"`
	Multiplexers []MuxInfo       `yaml:"multiplexers"`
	TileDirects  []DirectInfo    `yaml:"tile_directs,omitempty"`
	PlacedBlocks int             `yaml:"placed_blocks"`
	RoutedNodes  int             `yaml:"routed_nodes"`
	Simulation   SimulationInfo  `yaml:"simulation"`
	Warnings     []string        `yaml:"warnings,omitempty"`
}

// GSBArrayInfo is the size of the GSB array, one less than the grid in
// each direction.
type GSBArrayInfo struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

type SwitchBlockInfo struct {
	Unique           int      `yaml:"unique"`
	UniqueCBX        int      `yaml:"unique_cbx"`
	UniqueCBY        int      `yaml:"unique_cby"`
	Exclusive        int      `yaml:"exclusive"`
	InvalidLocations []string `yaml:"invalid_locations,omitempty"`
}

type MuxInfo struct {
	Name       string `yaml:"name"`
	Structure  string `yaml:"structure"`
	DataSize   int    `yaml:"data_size"`
	Levels     int    `yaml:"levels"`
	ConfigBits int    `yaml:"config_bits"`
	Instances  int    `yaml:"instances"`
}

type DirectInfo struct {
	Rule   string `yaml:"rule"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Model  string `yaml:"model,omitempty"`
	Bypass bool   `yaml:"bypass_routing"`
}

type SimulationInfo struct {
	ClockFrequency    float64 `yaml:"clock_frequency"`
	Slack             float64 `yaml:"slack"`
	Derived           bool    `yaml:"derived"`
	CriticalPathDelay float64 `yaml:"critical_path_delay,omitempty"`
	NumClockCycles    int     `yaml:"num_clock_cycles"`
}

// New builds the report of a successful link.
func New(ctx *link.Context) *Report {
	r := &Report{Warnings: ctx.Warnings}

	if d := ctx.DeviceRRGSB; d != nil {
		r.GSBArray = GSBArrayInfo{Columns: d.Width(), Rows: d.Height()}
		r.SwitchBlocks.Unique = d.NumSwitchBlocks()
		r.SwitchBlocks.UniqueCBX = d.NumConnectionBlocks(rrgsb.CBX)
		r.SwitchBlocks.UniqueCBY = d.NumConnectionBlocks(rrgsb.CBY)
		for id := 0; id < d.NumSwitchBlocks(); id++ {
			if d.IsExclusive(rrgsb.SwitchBlockID(id)) {
				r.SwitchBlocks.Exclusive++
			}
		}
		for _, c := range d.InvalidCoordinates() {
			r.SwitchBlocks.InvalidLocations = append(r.SwitchBlocks.InvalidLocations, c.String())
		}
	}

	if lib := ctx.MuxLibrary; lib != nil {
		for _, impl := range lib.Implementations() {
			r.Multiplexers = append(r.Multiplexers, MuxInfo{
				Name:       impl.Signature.String(),
				Structure:  impl.Structure.String(),
				DataSize:   impl.DataSize,
				Levels:     impl.Levels,
				ConfigBits: len(impl.ConfigBits),
				Instances:  len(lib.Instances(impl.ID)),
			})
		}
	}

	if ix := ctx.TileDirects; ix != nil {
		for _, c := range ix.Connections() {
			info := DirectInfo{Rule: c.Rule, From: c.From.String(), To: c.To.String(), Bypass: c.BypassRouting}
			if c.CircuitModel != nil {
				info.Model = c.CircuitModel.Name
			}
			r.TileDirects = append(r.TileDirects, info)
		}
	}
	if ctx.Placement != nil {
		r.PlacedBlocks = len(ctx.Placement.Placed())
	}
	if ctx.RoutingNets != nil {
		r.RoutedNodes = ctx.RoutingNets.NumUsedNodes()
	}
	r.Simulation = SimulationInfo{
		ClockFrequency:    ctx.Simulation.OperatingClockFrequency,
		Slack:             ctx.Simulation.OperatingClockFrequencySlack,
		Derived:           ctx.FrequencyDerived,
		CriticalPathDelay: ctx.CriticalPathDelay,
		NumClockCycles:    ctx.Simulation.NumClockCycles,
	}
	return r
}

// WriteYAML encodes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "report: encode")
	}
	_, err = w.Write(data)
	return err
}

// WriteText prints a human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "GSB array:\t%dx%d\n", r.GSBArray.Columns, r.GSBArray.Rows)
	fmt.Fprintf(tw, "Unique switch blocks:\t%d (%d exclusive)\n", r.SwitchBlocks.Unique, r.SwitchBlocks.Exclusive)
	fmt.Fprintf(tw, "Unique connection blocks:\tX %d, Y %d\n", r.SwitchBlocks.UniqueCBX, r.SwitchBlocks.UniqueCBY)
	fmt.Fprintf(tw, "Placed blocks:\t%d\n", r.PlacedBlocks)
	fmt.Fprintf(tw, "Routed nodes:\t%d\n", r.RoutedNodes)
	how := "configured"
	if r.Simulation.Derived {
		how = fmt.Sprintf("derived from %.3g s critical path", r.Simulation.CriticalPathDelay)
	}
	fmt.Fprintf(tw, "Clock frequency:\t%.6g Hz (%s)\n", r.Simulation.ClockFrequency, how)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nMultiplexers (%d):\n", len(r.Multiplexers))
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tSTRUCTURE\tINPUTS\tLEVELS\tBITS\tINSTANCES")
	for _, m := range r.Multiplexers {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%d\t%d\n", m.Name, m.Structure, m.DataSize, m.Levels, m.ConfigBits, m.Instances)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.TileDirects) > 0 {
		fmt.Fprintf(w, "\nTile directs (%d):\n", len(r.TileDirects))
		for _, d := range r.TileDirects {
			bypass := ""
			if d.Bypass {
				bypass = " (bypass)"
			}
			fmt.Fprintf(w, "  %s: %s -> %s%s\n", d.Rule, d.From, d.To, bypass)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(r.Warnings))
		for _, s := range r.Warnings {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}

// Write encodes the report in format, "yaml" or "text".
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "", "yaml":
		return r.WriteYAML(w)
	case "text":
		return r.WriteText(w)
	}
	return errors.Errorf("report: unknown format %q", format)
}

// Save writes the report to path.
func (r *Report) Save(path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "report: create")
	}
	if err := r.Write(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
