package rrgsb

import (
	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// SwitchBlockID identifies a canonical switch block.
type SwitchBlockID int

// ConnectionBlockID identifies a canonical connection block of one CBType.
type ConnectionBlockID int

type canonical[T any] interface {
	Hash() uint64
	Equal(T) bool
}

// arena stores one representative per equivalence class. Lookup hashes the
// normalized topology and compares exactly within the hash bucket.
type arena[T canonical[T]] struct {
	modules   []T
	exclusive []bool
	buckets   map[uint64][]int
}

func newArena[T canonical[T]]() *arena[T] {
	return &arena[T]{buckets: make(map[uint64][]int)}
}

// insert returns the class of t, creating it when no equal shared module
// exists. Exclusive modules never match and are never matched.
func (a *arena[T]) insert(t T, shared bool) int {
	if !shared {
		a.modules = append(a.modules, t)
		a.exclusive = append(a.exclusive, true)
		return len(a.modules) - 1
	}
	h := t.Hash()
	for _, id := range a.buckets[h] {
		if a.modules[id].Equal(t) {
			return id
		}
	}
	id := len(a.modules)
	a.modules = append(a.modules, t)
	a.exclusive = append(a.exclusive, false)
	a.buckets[h] = append(a.buckets[h], id)
	return id
}

func (a *arena[T]) len() int { return len(a.modules) }

// DeviceRRGSB maps every GSB coordinate of a device to its canonical switch
// block and connection blocks.
type DeviceRRGSB struct {
	width  int // GSB columns
	height int // GSB rows

	gsbs  []*GSB
	sbIDs []SwitchBlockID
	cbIDs [2][]ConnectionBlockID

	sbs     *arena[*Topology]
	cbs     [2]*arena[*CBTopology]
	invalid []Coordinate
}

// Build extracts and canonicalizes every GSB of a gridWidth x gridHeight
// device. Coordinates whose extraction reports issues are kept out of
// sharing: each of their faulty blocks gets its own exclusive module, and
// the coordinate is listed by InvalidCoordinates. A bi-directional track
// fails the whole build with ErrUnsupportedTopology.
func Build(g rrgraph.View, gridWidth, gridHeight int) (*DeviceRRGSB, error) {
	if gridWidth < 2 || gridHeight < 2 {
		return nil, errors.Errorf("rrgsb: %dx%d grid has no switch blocks", gridWidth, gridHeight)
	}
	d := &DeviceRRGSB{
		width:  gridWidth - 1,
		height: gridHeight - 1,
		sbs:    newArena[*Topology](),
		cbs:    [2]*arena[*CBTopology]{newArena[*CBTopology](), newArena[*CBTopology]()},
	}
	n := d.width * d.height
	d.gsbs = make([]*GSB, n)
	d.sbIDs = make([]SwitchBlockID, n)
	d.cbIDs[CBX] = make([]ConnectionBlockID, n)
	d.cbIDs[CBY] = make([]ConnectionBlockID, n)

	e := NewExtractor(g)
	for x := 0; x < d.width; x++ {
		for y := 0; y < d.height; y++ {
			c := Coordinate{X: x, Y: y}
			gsb, err := e.Extract(c)
			if err != nil {
				return nil, err
			}
			i := d.index(c)
			d.gsbs[i] = gsb
			d.sbIDs[i] = SwitchBlockID(d.sbs.insert(gsb.SB, len(gsb.SB.Issues) == 0))
			for _, t := range []CBType{CBX, CBY} {
				cb := gsb.CB(t)
				d.cbIDs[t][i] = ConnectionBlockID(d.cbs[t].insert(cb, len(cb.Issues) == 0))
			}
			if !gsb.Valid() {
				d.invalid = append(d.invalid, c)
			}
		}
	}
	return d, nil
}

func (d *DeviceRRGSB) index(c Coordinate) int {
	return c.X*d.height + c.Y
}

func (d *DeviceRRGSB) contains(c Coordinate) bool {
	return c.X >= 0 && c.X < d.width && c.Y >= 0 && c.Y < d.height
}

// Width returns the number of GSB columns.
func (d *DeviceRRGSB) Width() int { return d.width }

// Height returns the number of GSB rows.
func (d *DeviceRRGSB) Height() int { return d.height }

// Coordinates returns every GSB coordinate ordered by x then y.
func (d *DeviceRRGSB) Coordinates() []Coordinate {
	out := make([]Coordinate, 0, len(d.gsbs))
	for _, g := range d.gsbs {
		out = append(out, g.Coordinate)
	}
	return out
}

// GSB returns the extracted GSB at c.
func (d *DeviceRRGSB) GSB(c Coordinate) (*GSB, bool) {
	if !d.contains(c) {
		return nil, false
	}
	return d.gsbs[d.index(c)], true
}

// SwitchBlockID returns the canonical switch block of c.
func (d *DeviceRRGSB) SwitchBlockID(c Coordinate) (SwitchBlockID, bool) {
	if !d.contains(c) {
		return 0, false
	}
	return d.sbIDs[d.index(c)], true
}

// ConnectionBlockID returns the canonical connection block of type t at c.
func (d *DeviceRRGSB) ConnectionBlockID(t CBType, c Coordinate) (ConnectionBlockID, bool) {
	if !d.contains(c) {
		return 0, false
	}
	return d.cbIDs[t][d.index(c)], true
}

// NumSwitchBlocks returns the number of canonical switch blocks.
func (d *DeviceRRGSB) NumSwitchBlocks() int { return d.sbs.len() }

// NumConnectionBlocks returns the number of canonical connection blocks of
// type t.
func (d *DeviceRRGSB) NumConnectionBlocks(t CBType) int { return d.cbs[t].len() }

// SwitchBlock returns the representative topology of a canonical switch
// block: the first coordinate that produced it.
func (d *DeviceRRGSB) SwitchBlock(id SwitchBlockID) *Topology {
	return d.sbs.modules[id]
}

// ConnectionBlock returns the representative of a canonical connection
// block.
func (d *DeviceRRGSB) ConnectionBlock(t CBType, id ConnectionBlockID) *CBTopology {
	return d.cbs[t].modules[id]
}

// IsExclusive reports whether a switch block belongs to a single invalid
// coordinate.
func (d *DeviceRRGSB) IsExclusive(id SwitchBlockID) bool {
	return d.sbs.exclusive[id]
}

// Instances returns the coordinates sharing a canonical switch block,
// ordered by x then y.
func (d *DeviceRRGSB) Instances(id SwitchBlockID) []Coordinate {
	var out []Coordinate
	for i, sid := range d.sbIDs {
		if sid == id {
			out = append(out, d.gsbs[i].Coordinate)
		}
	}
	return out
}

// InvalidCoordinates returns the coordinates excluded from sharing.
func (d *DeviceRRGSB) InvalidCoordinates() []Coordinate {
	out := make([]Coordinate, len(d.invalid))
	copy(out, d.invalid)
	return out
}

// Issues returns every issue reported at c.
func (d *DeviceRRGSB) Issues(c Coordinate) []string {
	g, ok := d.GSB(c)
	if !ok {
		return nil
	}
	var out []string
	out = append(out, g.SB.Issues...)
	out = append(out, g.CBX.Issues...)
	out = append(out, g.CBY.Issues...)
	return out
}
