package annotation

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

const testArch = `
circuit_model mux_tree type=mux structure=tree default;
circuit_model mux_big type=mux structure=one_level;
circuit_model wire0 type=wire;
circuit_model L1_wire type=chan_wire;
circuit_model lut4 type=lut;
switch L1_mux model=mux_big;
segment L1 model=L1_wire;
pb_type clb {
	input I[4];
	output O;
	mode only {
		pb_type lut model=lut4 {
			input in[4];
			output out;
		}
		pb_type ff {
			input d;
			output q;
		}
		interconnect xbar type=complete inputs="clb.I" outputs="lut.in";
		interconnect dout type=direct inputs="lut.out" outputs="ff.d";
		interconnect omux type=mux inputs="lut.out ff.q" outputs="clb.O" model=mux_big;
	}
}
`

func loadArch(t *testing.T) *arch.Architecture {
	t.Helper()
	a, err := arch.LoadString(testArch)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return a
}

func TestAnnotatePbTypes(t *testing.T) {
	a := loadArch(t)
	ann, warnings, err := AnnotatePbTypes(a)
	if err != nil {
		t.Fatalf("AnnotatePbTypes: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "clb[only].ff") {
		t.Errorf("warnings = %v, want one for the model-less ff", warnings)
	}

	clb, _ := a.PbType("clb")
	if m, ok := ann.PhysicalMode(clb); !ok || m.Name != "only" {
		t.Errorf("single mode should be physical, got %v", m)
	}
	lut, _ := arch.FindPbType(a.PbTypes, "clb[only].lut")
	if m, ok := ann.PrimitiveModel(lut); !ok || m.Name != "lut4" {
		t.Errorf("lut model = %v", m)
	}

	only, _ := clb.Mode("only")
	want := map[string]string{"xbar": "mux_tree", "dout": "wire0", "omux": "mux_big"}
	for _, ic := range only.Interconnects {
		m, ok := ann.InterconnectModel(ic)
		if !ok || m.Name != want[ic.Name] {
			t.Errorf("interconnect %s model = %v, want %s", ic.Name, m, want[ic.Name])
		}
	}
}

func TestAnnotatePbTypesUnknownModel(t *testing.T) {
	a, err := arch.LoadString(strings.Replace(testArch, "model=lut4", "model=lut6", 1))
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if _, _, err := AnnotatePbTypes(a); err == nil || !strings.Contains(err.Error(), "lut6") {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestAnnotatePbTypesBadPhysicalPath(t *testing.T) {
	a := loadArch(t)
	ff, err := arch.FindPbType(a.PbTypes, "clb[only].ff")
	if err != nil {
		t.Fatal(err)
	}
	ff.PhysicalPbType = "clb[only].dsp"

	_, _, err = AnnotatePbTypes(a)
	if err == nil || !strings.HasPrefix(err.Error(), "annotation: clb[only].ff: ") {
		t.Fatalf("err = %v, want it prefixed with the pb type path", err)
	}
	if cause := errors.Cause(err); !strings.HasPrefix(cause.Error(), "arch: pb type \"dsp\" not found") {
		t.Errorf("cause = %v", cause)
	}
}

func TestAnnotateRoutingCircuitModels(t *testing.T) {
	a := loadArch(t)
	g := rrgraph.New()
	l1 := g.AddSwitch("L1_mux")
	ipin := g.AddSwitch("ipin_cblock")
	seg := g.AddSegment("L1", 1)
	other := g.AddSegment("L4", 4)

	rm, warnings := AnnotateRoutingCircuitModels(a, g)
	if m, ok := rm.Switch(l1); !ok || m.Name != "mux_big" {
		t.Errorf("L1_mux model = %v", m)
	}
	if m, ok := rm.Switch(ipin); !ok || m.Name != "mux_tree" {
		t.Errorf("unbound switch should fall back to the default mux, got %v", m)
	}
	if m, ok := rm.Segment(seg); !ok || m.Name != "L1_wire" {
		t.Errorf("segment model = %v", m)
	}
	if _, ok := rm.Segment(other); ok {
		t.Errorf("L4 should be unbound")
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v", warnings)
	}
}

func buildRoutedDesign() (*rrgraph.Graph, *netlist.Clustering, *netlist.Routing) {
	g := rrgraph.New()
	sw := g.AddSwitch("sw")
	opin := g.AddNode(rrgraph.Node{Type: rrgraph.NodeOPin, XLow: 1, YLow: 1, XHigh: 1, YHigh: 1})
	track := g.AddNode(rrgraph.Node{Type: rrgraph.NodeChanX, Direction: rrgraph.DirInc, XLow: 1, YLow: 1, XHigh: 1, YHigh: 1})
	ipin := g.AddNode(rrgraph.Node{Type: rrgraph.NodeIPin, XLow: 2, YLow: 1, XHigh: 2, YHigh: 1})
	g.MustAddEdge(opin, track, sw)
	g.MustAddEdge(track, ipin, sw)

	c := &netlist.Clustering{}
	n0 := c.AddNet("n0")
	c.AddNet("n1")
	r := netlist.NewRouting()
	r.AddRoute(n0, opin, rrgraph.InvalidNode)
	r.AddRoute(n0, track, opin)
	r.AddRoute(n0, ipin, track)
	return g, c, r
}

func TestAnnotateRoutingNets(t *testing.T) {
	g, c, r := buildRoutedDesign()
	ann, err := AnnotateRoutingNets(g, c, r)
	if err != nil {
		t.Fatalf("AnnotateRoutingNets: %v", err)
	}
	if net, ok := ann.NetOf(2); !ok || net != 0 {
		t.Errorf("NetOf(ipin) = %d, %v", net, ok)
	}
	if prev := ann.PrevNode(2); prev != 1 {
		t.Errorf("PrevNode(ipin) = %d, want 1", prev)
	}
	if prev := ann.PrevNode(0); prev != rrgraph.InvalidNode {
		t.Errorf("route source should have no previous node, got %d", prev)
	}
	if ann.NumUsedNodes() != 3 {
		t.Errorf("NumUsedNodes = %d", ann.NumUsedNodes())
	}
	if _, ok := ann.NetOf(99); ok {
		t.Errorf("NetOf out of range should report false")
	}
}

func TestAnnotateRoutingNetsConflict(t *testing.T) {
	g, c, r := buildRoutedDesign()
	r.AddRoute(1, 1, rrgraph.InvalidNode)
	_, err := AnnotateRoutingNets(g, c, r)
	if err == nil || !strings.Contains(err.Error(), "used by nets n0 and n1") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAnnotateRoutingNetsUnknownNode(t *testing.T) {
	g, c, r := buildRoutedDesign()
	r.AddRoute(1, 42, rrgraph.InvalidNode)
	if _, err := AnnotateRoutingNets(g, c, r); err == nil {
		t.Fatal("expected unknown node error")
	}
}

func placementGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g := grid.New(3, 3)
	for _, name := range []string{"clb", "io"} {
		if err := g.AddTileType(grid.NewTileType(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Fill("io"); err != nil {
		t.Fatal(err)
	}
	if err := g.Set(grid.Coordinate{X: 1, Y: 1}, "clb"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestAnnotatePlacement(t *testing.T) {
	g := placementGrid(t)
	c := &netlist.Clustering{}
	logic := c.AddBlock("logic", "clb", "lut_a", "ff_a")
	pad := c.AddBlock("pad_in", "io", "inpad")
	pad2 := c.AddBlock("pad_out", "io", "outpad")
	p := netlist.NewPlacement()
	p.Place(logic, netlist.Location{X: 1, Y: 1})
	p.Place(pad, netlist.Location{X: 0, Y: 1})
	p.Place(pad2, netlist.Location{X: 0, Y: 1, Subtile: 1})

	ann, err := AnnotatePlacement(g, c, p)
	if err != nil {
		t.Fatalf("AnnotatePlacement: %v", err)
	}
	b, ok := ann.Block(netlist.Location{X: 1, Y: 1})
	if !ok || b.Name != "logic" || len(b.Atoms) != 2 {
		t.Errorf("block at (1,1) = %+v", b)
	}
	placed := ann.Placed()
	if len(placed) != 3 || placed[0].Block.Name != "pad_in" || placed[1].Block.Name != "pad_out" {
		t.Errorf("Placed() order = %+v", placed)
	}
}

func TestAnnotatePlacementErrors(t *testing.T) {
	g := placementGrid(t)
	c := &netlist.Clustering{}
	logic := c.AddBlock("logic", "clb")
	other := c.AddBlock("logic2", "clb")

	p := netlist.NewPlacement()
	p.Place(logic, netlist.Location{X: 0, Y: 0})
	if _, err := AnnotatePlacement(g, c, p); err == nil || !strings.Contains(err.Error(), "io tile") {
		t.Errorf("expected tile type mismatch, got %v", err)
	}

	p = netlist.NewPlacement()
	p.Place(logic, netlist.Location{X: 1, Y: 1})
	p.Place(other, netlist.Location{X: 1, Y: 1})
	if _, err := AnnotatePlacement(g, c, p); err == nil || !strings.Contains(err.Error(), "both placed") {
		t.Errorf("expected overlap error, got %v", err)
	}

	p = netlist.NewPlacement()
	p.Place(logic, netlist.Location{X: 5, Y: 1})
	if _, err := AnnotatePlacement(g, c, p); err == nil {
		t.Errorf("expected out-of-grid error")
	}
}
