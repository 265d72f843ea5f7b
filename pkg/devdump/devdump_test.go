package devdump_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/fabricgen"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

func TestRoundTrip(t *testing.T) {
	p := fabricgen.DefaultParams()
	p.DirectRouting = true
	want, err := fabricgen.Generate(p)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := devdump.Write(&buf, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := devdump.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Grid.Width() != want.Grid.Width() || got.Grid.Height() != want.Grid.Height() {
		t.Fatalf("grid is %dx%d", got.Grid.Width(), got.Grid.Height())
	}
	for x := 0; x < want.Grid.Width(); x++ {
		for y := 0; y < want.Grid.Height(); y++ {
			c := grid.Coordinate{X: x, Y: y}
			a, b := want.Grid.Tile(c), got.Grid.Tile(c)
			if (a == nil) != (b == nil) || (a != nil && a.Name != b.Name) {
				t.Errorf("tile %s differs", c)
			}
		}
	}
	clb, _ := got.Grid.TileType(fabricgen.TileLogic)
	if port, ok := clb.Port("cin"); !ok || port.Pin(0) != 6 {
		t.Errorf("clb.cin = %+v", port)
	}

	if got.Graph.NumNodes() != want.Graph.NumNodes() || got.Graph.NumEdges() != want.Graph.NumEdges() {
		t.Fatalf("graph has %d nodes, %d edges; want %d, %d",
			got.Graph.NumNodes(), got.Graph.NumEdges(), want.Graph.NumNodes(), want.Graph.NumEdges())
	}
	for i := 0; i < want.Graph.NumNodes(); i++ {
		id := rrgraph.NodeID(i)
		if got.Graph.Node(id) != want.Graph.Node(id) {
			t.Fatalf("node %d = %+v, want %+v", i, got.Graph.Node(id), want.Graph.Node(id))
		}
	}
	for i := 0; i < want.Graph.NumEdges(); i++ {
		id := rrgraph.EdgeID(i)
		if got.Graph.Edge(id) != want.Graph.Edge(id) {
			t.Fatalf("edge %d = %+v, want %+v", i, got.Graph.Edge(id), want.Graph.Edge(id))
		}
	}
	if len(got.Graph.Switches()) != 3 || len(got.Graph.Segments()) != 1 {
		t.Errorf("switches/segments not restored")
	}

	if len(got.Clustering.Blocks) != 2 || got.Clustering.Blocks[1].Name != "clb0" {
		t.Fatalf("blocks = %+v", got.Clustering.Blocks)
	}
	if atoms := got.Clustering.Blocks[1].Atoms; len(atoms) != 2 || atoms[1] != "ff0" {
		t.Errorf("atoms = %v", atoms)
	}
	loc, ok := got.Placement.Location(1)
	if !ok || loc.X != 1 || loc.Y != 1 {
		t.Errorf("clb0 placed at %v", loc)
	}
	if tree := got.Routing.Tree(0); len(tree) != 3 || tree[0].Parent != rrgraph.InvalidNode {
		t.Errorf("route tree = %+v", tree)
	}
	if len(got.Timing) != 2 || got.Timing[0] != want.Timing[0] {
		t.Errorf("timing arcs = %+v", got.Timing)
	}
}

func TestSaveLoad(t *testing.T) {
	dev, err := fabricgen.Generate(fabricgen.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "device.sexp")
	if err := devdump.Save(path, dev); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	got, err := devdump.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Graph.NumNodes() != dev.Graph.NumNodes() {
		t.Errorf("loaded %d nodes", got.Graph.NumNodes())
	}
	if _, err := devdump.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("loading a missing file succeeded")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not device", `(board)`, "missing (device"},
		{"two grids", `(device (grid 3 3) (grid 3 3))`, "one grid"},
		{"unknown form", `(device (grid 3 3) (wire 1))`, "unknown form"},
		{"bad tile", `(device (grid 3 3 (tile 1 1 clb)))`, "unknown tile type"},
		{"node order", `(device (grid 3 3) (segment 0 "L1" 1) (node 1 CHANX INC 1 0 1 0 0 TOP 0))`, "position 0"},
		{"bad direction", `(device (grid 3 3) (node 0 CHANX UP 1 0 1 0 0 TOP -1))`, "unknown direction"},
		{"short node", `(device (grid 3 3) (node 0 CHANX INC 1 0))`, "(node ...)"},
		{"bad edge", `(device (grid 3 3) (switch 0 "sw") (edge 0 1 0))`, "unknown node"},
		{"bad number", `(device (grid 3 3) (arc "a" "b" fast))`, "not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := devdump.ParseString(tt.input)
			if err == nil {
				t.Fatalf("ParseString succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestReadAtoms(t *testing.T) {
	d, err := devdump.ParseString(`(device (grid 3 3) (arc "clb0.I[2]" out 1.5e-9))`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(d.Timing) != 1 {
		t.Fatalf("got %d arcs, want 1", len(d.Timing))
	}
	a := d.Timing[0]
	if a.From != "clb0.I[2]" || a.To != "out" || a.Delay != 1.5e-9 {
		t.Errorf("arc = %+v", a)
	}
}
