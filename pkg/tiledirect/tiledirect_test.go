package tiledirect

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/fabricgen"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
)

func load(t *testing.T, text string) *arch.Architecture {
	t.Helper()
	a, err := arch.LoadString(text)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return a
}

func TestBuildCarryChain(t *testing.T) {
	a := load(t, fabricgen.ArchText)
	p := fabricgen.DefaultParams()

	for _, direct := range []bool{false, true} {
		p.DirectRouting = direct
		dev, err := fabricgen.Generate(p)
		if err != nil {
			t.Fatal(err)
		}
		ix, warnings := Build(a, dev.Grid, dev.Graph)
		if len(warnings) != 0 {
			t.Errorf("unexpected warnings: %v", warnings)
		}
		// three columns of logic tiles, two links each
		if ix.Len() != 6 {
			t.Fatalf("got %d connections, want 6", ix.Len())
		}
		first := ix.Connections()[0]
		if first.From.Coordinate != (grid.Coordinate{X: 1, Y: 1}) || first.To.Coordinate != (grid.Coordinate{X: 1, Y: 2}) {
			t.Errorf("first connection = %s -> %s", first.From, first.To)
		}
		if first.From.Port != "cout" || first.To.Port != "cin" {
			t.Errorf("first connection ports = %s, %s", first.From.Port, first.To.Port)
		}
		if first.CircuitModel == nil || first.CircuitModel.Name != "direct_wire" {
			t.Errorf("circuit model = %+v", first.CircuitModel)
		}
		for _, c := range ix.Rule("carry_chain") {
			if c.BypassRouting == direct {
				t.Errorf("DirectRouting=%v: %s -> %s has BypassRouting=%v", direct, c.From, c.To, c.BypassRouting)
			}
		}
	}
}

const widthArch = `
circuit_model w type=wire default;
pb_type clb {
	input I[4];
	output O[2];
	input cin;
	output cout;
}
direct wide from=clb.O to=clb.I dx=1 dy=0;
direct ghost from=dsp.out to=clb.cin dx=0 dy=1;
direct noport from=clb.cout to=clb.carry dx=0 dy=1;
direct edge from=clb.cout to=clb.cin dx=5 dy=0;
`

func TestBuildSkipsBadRules(t *testing.T) {
	a := load(t, widthArch)
	dev, err := fabricgen.Generate(fabricgen.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	ix, warnings := Build(a, dev.Grid, dev.Graph)
	if ix.Len() != 0 {
		t.Errorf("got %d connections, want 0", ix.Len())
	}
	// "edge" matches no location and is not a warning
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v", warnings)
	}
	for i, want := range []string{"has 2 pins", "dsp", "carry"} {
		if !strings.Contains(warnings[i], want) {
			t.Errorf("warning %d = %q, want it to mention %q", i, warnings[i], want)
		}
	}
}

const placementArch = `
circuit_model w type=wire default;
direct dspchain from=dsp.dout to=clb.cin dx=0 dy=1;
direct backwards from=clb.cin to=clb.cout dx=0 dy=1;
direct intoout from=clb.cout to=clb.O dx=0 dy=1;
`

func TestBuildChecksPlacementAndDirection(t *testing.T) {
	a := load(t, placementArch)
	dev, err := fabricgen.Generate(fabricgen.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	dsp := grid.NewTileType("dsp")
	if err := dsp.AddPort("dout", grid.PortOutput, 1); err != nil {
		t.Fatal(err)
	}
	if err := dev.Grid.AddTileType(dsp); err != nil {
		t.Fatal(err)
	}

	ix, warnings := Build(a, dev.Grid, dev.Graph)
	if ix.Len() != 0 {
		t.Errorf("got %d connections, want 0", ix.Len())
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v", warnings)
	}
	for i, want := range []string{"dsp is not placed", "clb.cin has direction input", "clb.O has direction output"} {
		if !strings.Contains(warnings[i], want) {
			t.Errorf("warning %d = %q, want it to mention %q", i, warnings[i], want)
		}
	}
}
