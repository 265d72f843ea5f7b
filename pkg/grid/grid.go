// Package grid models the device floorplan: a rectangle of tiles, each
// location holding one physical tile type whose pins are numbered
// consecutively across its ports.
package grid

import (
	"fmt"
	"sort"
)

// Coordinate is a device grid position.
type Coordinate struct {
	X int
	Y int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Offset returns c translated by (dx, dy).
func (c Coordinate) Offset(dx, dy int) Coordinate {
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

// PortDirection is the direction of a tile port.
type PortDirection uint8

const (
	PortInput PortDirection = iota
	PortOutput
	PortClock
)

func (d PortDirection) String() string {
	switch d {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	case PortClock:
		return "clock"
	}
	return fmt.Sprintf("PortDirection(%d)", d)
}

// ParsePortDirection converts a textual port direction.
func ParsePortDirection(s string) (PortDirection, error) {
	switch s {
	case "input":
		return PortInput, nil
	case "output":
		return PortOutput, nil
	case "clock":
		return PortClock, nil
	}
	return 0, fmt.Errorf("grid: unknown port direction %q", s)
}

// Port is a named bus of tile pins.
type Port struct {
	Name      string
	Direction PortDirection
	Width     int
	FirstPin  int // assigned by TileType.AddPort
}

// Pin returns the tile pin number of bit i of the port.
func (p Port) Pin(i int) int {
	return p.FirstPin + i
}

// TileType is a physical tile kind.
type TileType struct {
	Name    string
	Ports   []Port
	NumPins int
}

// NewTileType creates a tile type with no ports.
func NewTileType(name string) *TileType {
	return &TileType{Name: name}
}

// AddPort appends a port and numbers its pins after the existing ones.
func (t *TileType) AddPort(name string, dir PortDirection, width int) error {
	if width < 1 {
		return fmt.Errorf("grid: port %s.%s has width %d", t.Name, name, width)
	}
	if _, ok := t.Port(name); ok {
		return fmt.Errorf("grid: duplicate port %s.%s", t.Name, name)
	}
	t.Ports = append(t.Ports, Port{Name: name, Direction: dir, Width: width, FirstPin: t.NumPins})
	t.NumPins += width
	return nil
}

// Port looks up a port by name.
func (t *TileType) Port(name string) (Port, bool) {
	for _, p := range t.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Grid is the device floorplan.
type Grid struct {
	width  int
	height int
	types  map[string]*TileType
	tiles  []*TileType // row-major, nil for empty locations
}

// New creates an empty width x height grid.
func New(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		types:  make(map[string]*TileType),
		tiles:  make([]*TileType, width*height),
	}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// AddTileType registers a tile type so that locations can reference it.
func (g *Grid) AddTileType(t *TileType) error {
	if _, ok := g.types[t.Name]; ok {
		return fmt.Errorf("grid: duplicate tile type %q", t.Name)
	}
	g.types[t.Name] = t
	return nil
}

// TileType looks up a registered tile type.
func (g *Grid) TileType(name string) (*TileType, bool) {
	t, ok := g.types[name]
	return t, ok
}

// TileTypes returns the registered tile types sorted by name.
func (g *Grid) TileTypes() []*TileType {
	out := make([]*TileType, 0, len(g.types))
	for _, t := range g.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Contains reports whether c lies inside the grid.
func (g *Grid) Contains(c Coordinate) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// Set places a registered tile type at c.
func (g *Grid) Set(c Coordinate, typeName string) error {
	if !g.Contains(c) {
		return fmt.Errorf("grid: location %s outside %dx%d grid", c, g.width, g.height)
	}
	t, ok := g.types[typeName]
	if !ok {
		return fmt.Errorf("grid: unknown tile type %q at %s", typeName, c)
	}
	g.tiles[c.Y*g.width+c.X] = t
	return nil
}

// Fill places the tile type at every empty location.
func (g *Grid) Fill(typeName string) error {
	t, ok := g.types[typeName]
	if !ok {
		return fmt.Errorf("grid: unknown tile type %q", typeName)
	}
	for i := range g.tiles {
		if g.tiles[i] == nil {
			g.tiles[i] = t
		}
	}
	return nil
}

// Tile returns the tile type at c, or nil for empty or out-of-range
// locations.
func (g *Grid) Tile(c Coordinate) *TileType {
	if !g.Contains(c) {
		return nil
	}
	return g.tiles[c.Y*g.width+c.X]
}

// Locations returns every location holding the named tile type, ordered by
// x then y.
func (g *Grid) Locations(typeName string) []Coordinate {
	var out []Coordinate
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if t := g.tiles[y*g.width+x]; t != nil && t.Name == typeName {
				out = append(out, Coordinate{X: x, Y: y})
			}
		}
	}
	return out
}
