package fabricgen

import (
	"testing"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

func TestGenerateDefault(t *testing.T) {
	dev, err := Generate(DefaultParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := dev.Graph.NumNodes(); got != 288 {
		t.Errorf("got %d nodes, want 288", got)
	}
	if dev.Grid.Tile(grid.Coordinate{X: 0, Y: 0}) != nil {
		t.Errorf("corner should be empty")
	}
	if tile := dev.Grid.Tile(grid.Coordinate{X: 2, Y: 0}); tile == nil || tile.Name != TileIO {
		t.Errorf("perimeter should hold io tiles")
	}
	if tile := dev.Grid.Tile(grid.Coordinate{X: 2, Y: 2}); tile == nil || tile.Name != TileLogic {
		t.Errorf("interior should hold logic tiles")
	}
	if err := rrgraph.CheckSupported(dev.Graph); err != nil {
		t.Errorf("generated graph should be uni-directional: %v", err)
	}

	tracks := dev.Graph.ChannelNodes(rrgraph.NodeChanX, 1, 0)
	if len(tracks) != 4 {
		t.Fatalf("CHANX(1,0) has %d tracks", len(tracks))
	}
	if dev.Graph.Node(tracks[0]).Direction != rrgraph.DirInc || dev.Graph.Node(tracks[1]).Direction != rrgraph.DirDec {
		t.Errorf("track directions should alternate INC/DEC")
	}
	// CHANX(1,0) INC tracks are driven at GSB(0,0) from the TOP side track
	// of the same pair and from the pad below.
	if got := len(dev.Graph.InEdges(tracks[0])); got != 2 {
		t.Errorf("CHANX(1,0) track 0 has %d drivers, want 2", got)
	}

	if got := len(dev.Routing.Nets()); got != 1 {
		t.Errorf("got %d routed nets, want 1", got)
	}
	if len(dev.Timing) != 2 {
		t.Errorf("got %d timing arcs, want 2", len(dev.Timing))
	}
}

func TestGenerateDirectRouting(t *testing.T) {
	p := DefaultParams()
	plain, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	p.DirectRouting = true
	routed, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	// one cout -> cin edge per vertically adjacent pair of logic tiles
	if diff := routed.Graph.NumEdges() - plain.Graph.NumEdges(); diff != 6 {
		t.Errorf("direct routing added %d edges, want 6", diff)
	}
}

func TestGenerateBidirectional(t *testing.T) {
	p := DefaultParams()
	p.Bidirectional = true
	dev, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := rrgraph.CheckSupported(dev.Graph); err == nil {
		t.Errorf("bi-directional graph passed the check")
	}
}

func TestParamsValidate(t *testing.T) {
	for _, p := range []Params{
		{Width: 2, Height: 5, ChannelWidth: 4},
		{Width: 5, Height: 5, ChannelWidth: 3},
		{Width: 5, Height: 5, ChannelWidth: 0},
	} {
		if _, err := Generate(p); err == nil {
			t.Errorf("Generate(%+v) succeeded", p)
		}
	}
}

func TestArchTextMatchesDevice(t *testing.T) {
	a, err := arch.LoadString(ArchText)
	if err != nil {
		t.Fatalf("ArchText does not load: %v", err)
	}
	dev, err := Generate(DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, sw := range dev.Graph.Switches() {
		if _, ok := a.Switches[sw.Name]; !ok {
			t.Errorf("switch %s is not bound in ArchText", sw.Name)
		}
	}
	for _, tile := range dev.Grid.TileTypes() {
		pb, ok := a.PbType(tile.Name)
		if !ok {
			t.Errorf("tile %s has no pb type", tile.Name)
			continue
		}
		for _, port := range tile.Ports {
			if pp, ok := pb.Port(port.Name); !ok || pp.Width != port.Width {
				t.Errorf("tile port %s.%s does not match pb type", tile.Name, port.Name)
			}
		}
	}
}
