package grid

import "testing"

func TestTileTypePinNumbering(t *testing.T) {
	clb := NewTileType("clb")
	if err := clb.AddPort("I", PortInput, 4); err != nil {
		t.Fatalf("AddPort I: %v", err)
	}
	if err := clb.AddPort("O", PortOutput, 2); err != nil {
		t.Fatalf("AddPort O: %v", err)
	}
	if err := clb.AddPort("O", PortOutput, 1); err == nil {
		t.Fatalf("duplicate port accepted")
	}
	if err := clb.AddPort("Z", PortOutput, 0); err == nil {
		t.Fatalf("zero-width port accepted")
	}

	o, ok := clb.Port("O")
	if !ok {
		t.Fatalf("port O not found")
	}
	if o.Pin(1) != 5 {
		t.Errorf("O[1] pin = %d, want 5", o.Pin(1))
	}
	if clb.NumPins != 6 {
		t.Errorf("NumPins = %d, want 6", clb.NumPins)
	}
}

func TestGridPlacementAndLookup(t *testing.T) {
	g := New(3, 2)
	if err := g.AddTileType(NewTileType("io")); err != nil {
		t.Fatalf("AddTileType: %v", err)
	}
	if err := g.AddTileType(NewTileType("clb")); err != nil {
		t.Fatalf("AddTileType: %v", err)
	}
	if err := g.AddTileType(NewTileType("clb")); err == nil {
		t.Fatalf("duplicate tile type accepted")
	}

	if err := g.Set(Coordinate{0, 0}, "io"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := g.Set(Coordinate{5, 0}, "io"); err == nil {
		t.Fatalf("out-of-range Set accepted")
	}
	if err := g.Set(Coordinate{1, 1}, "dsp"); err == nil {
		t.Fatalf("unknown tile type accepted")
	}
	if err := g.Fill("clb"); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if got := g.Tile(Coordinate{0, 0}); got == nil || got.Name != "io" {
		t.Errorf("Tile(0,0) = %v, want io", got)
	}
	if got := g.Tile(Coordinate{3, 0}); got != nil {
		t.Errorf("Tile outside grid = %v, want nil", got)
	}

	locs := g.Locations("clb")
	if len(locs) != 5 {
		t.Fatalf("Locations(clb) = %v, want 5 entries", locs)
	}
	if locs[0] != (Coordinate{0, 1}) || locs[1] != (Coordinate{1, 0}) {
		t.Errorf("Locations not ordered by x then y: %v", locs)
	}

	types := g.TileTypes()
	if len(types) != 2 || types[0].Name != "clb" {
		t.Errorf("TileTypes = %v, want sorted [clb io]", types)
	}
}
