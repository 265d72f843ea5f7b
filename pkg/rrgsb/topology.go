package rrgsb

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// Coordinate is a GSB position. GSB (x, y) sits at the top-right corner of
// tile (x, y).
type Coordinate = grid.Coordinate

// PortDirection is the direction of a track relative to a switch block.
type PortDirection uint8

const (
	PortNone PortDirection = iota
	PortIn
	PortOut
)

var portDirectionNames = map[PortDirection]string{
	PortNone: "none",
	PortIn:   "in",
	PortOut:  "out",
}

func (d PortDirection) String() string {
	if name, ok := portDirectionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("PortDirection(%d)", d)
}

// DriverKind classifies the source of a mux input.
type DriverKind uint8

const (
	// DriverTrack is a track of this GSB, identified by side and index.
	DriverTrack DriverKind = iota
	// DriverOPin is an output pin of a tile adjacent to this GSB.
	DriverOPin
	// DriverForeign is a node this GSB cannot describe locally.
	DriverForeign
)

// Driver is one input of a routing mux, described relative to the GSB.
type Driver struct {
	Kind   DriverKind
	Side   rrgraph.Side // DriverTrack
	Index  int          // DriverTrack: track index on Side
	DX, DY int          // DriverOPin: tile offset from the GSB coordinate
	PTC    int          // DriverOPin
	Switch rrgraph.SwitchID

	// Node is the driving node. It identifies the driver in the device but
	// takes no part in comparisons, except for foreign drivers.
	Node rrgraph.NodeID
}

func cmp[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareDrivers(a, b Driver) int {
	if c := cmp(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp(a.Side, b.Side); c != 0 {
		return c
	}
	if c := cmp(a.Index, b.Index); c != 0 {
		return c
	}
	if c := cmp(a.DX, b.DX); c != 0 {
		return c
	}
	if c := cmp(a.DY, b.DY); c != 0 {
		return c
	}
	if c := cmp(a.PTC, b.PTC); c != 0 {
		return c
	}
	if c := cmp(a.Switch, b.Switch); c != 0 {
		return c
	}
	if a.Kind == DriverForeign {
		return cmp(a.Node, b.Node)
	}
	return 0
}

func sortDrivers(drivers []Driver) {
	sort.SliceStable(drivers, func(i, j int) bool { return compareDrivers(drivers[i], drivers[j]) < 0 })
}

func equalDrivers(a, b []Driver) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if compareDrivers(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

// Track is one routing track on a side of a switch block.
type Track struct {
	Node      rrgraph.NodeID
	Direction PortDirection
	Segment   rrgraph.SegmentID
	// Passing marks an OUT track that starts beyond this switch block and
	// is not driven here.
	Passing bool
	// Drivers of a driven OUT track, in normal form.
	Drivers []Driver
}

// Topology is the switch block of one GSB.
type Topology struct {
	Coordinate Coordinate
	Sides      [rrgraph.NumSides][]Track
	Issues     []string
}

// Equal reports whether two switch blocks are structurally identical,
// track for track.
func (t *Topology) Equal(o *Topology) bool {
	for s := range t.Sides {
		if len(t.Sides[s]) != len(o.Sides[s]) {
			return false
		}
		for i := range t.Sides[s] {
			a, b := t.Sides[s][i], o.Sides[s][i]
			if a.Direction != b.Direction || a.Segment != b.Segment || a.Passing != b.Passing {
				return false
			}
			if !equalDrivers(a.Drivers, b.Drivers) {
				return false
			}
		}
	}
	return true
}

// Hash returns a hash consistent with Equal.
func (t *Topology) Hash() uint64 {
	h := newHasher()
	for s := range t.Sides {
		h.int(len(t.Sides[s]))
		for _, tr := range t.Sides[s] {
			h.int(int(tr.Direction))
			h.int(int(tr.Segment))
			h.bool(tr.Passing)
			h.drivers(tr.Drivers)
		}
	}
	return h.sum()
}

// NumMuxes returns the number of driven OUT tracks with at least one
// driver.
func (t *Topology) NumMuxes() int {
	n := 0
	for s := range t.Sides {
		for _, tr := range t.Sides[s] {
			if tr.Direction == PortOut && !tr.Passing && len(tr.Drivers) > 0 {
				n++
			}
		}
	}
	return n
}

// CBType selects the horizontal (CBX) or vertical (CBY) connection block.
type CBType uint8

const (
	CBX CBType = iota
	CBY
)

func (t CBType) String() string {
	switch t {
	case CBX:
		return "CBX"
	case CBY:
		return "CBY"
	}
	return fmt.Sprintf("CBType(%d)", t)
}

// Side returns the GSB side whose channel the connection block taps.
func (t CBType) Side() rrgraph.Side {
	if t == CBX {
		return rrgraph.SideLeft
	}
	return rrgraph.SideBottom
}

// IPin is a tile input pin fed by a connection block.
type IPin struct {
	Node rrgraph.NodeID
	// Group is the side of the channel the pin's tile lies on.
	Group   rrgraph.Side
	PTC     int
	Drivers []Driver
}

// CBTopology is a connection block of one GSB: the tracks of its channel
// and the input pins they feed.
type CBTopology struct {
	Coordinate Coordinate
	Type       CBType
	Channel    []Track // drivers left empty
	IPins      []IPin
	Issues     []string
}

// Equal reports whether two connection blocks are structurally identical.
func (c *CBTopology) Equal(o *CBTopology) bool {
	if c.Type != o.Type || len(c.Channel) != len(o.Channel) || len(c.IPins) != len(o.IPins) {
		return false
	}
	for i := range c.Channel {
		if c.Channel[i].Direction != o.Channel[i].Direction || c.Channel[i].Segment != o.Channel[i].Segment {
			return false
		}
	}
	for i := range c.IPins {
		a, b := c.IPins[i], o.IPins[i]
		if a.Group != b.Group || a.PTC != b.PTC || !equalDrivers(a.Drivers, b.Drivers) {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal.
func (c *CBTopology) Hash() uint64 {
	h := newHasher()
	h.int(int(c.Type))
	h.int(len(c.Channel))
	for _, tr := range c.Channel {
		h.int(int(tr.Direction))
		h.int(int(tr.Segment))
	}
	h.int(len(c.IPins))
	for _, p := range c.IPins {
		h.int(int(p.Group))
		h.int(p.PTC)
		h.drivers(p.Drivers)
	}
	return h.sum()
}

// GSB is a general switch block: a switch block and the two connection
// blocks sharing its coordinate.
type GSB struct {
	Coordinate Coordinate
	SB         *Topology
	CBX        *CBTopology
	CBY        *CBTopology
}

// CB returns the connection block of the given type.
func (g *GSB) CB(t CBType) *CBTopology {
	if t == CBX {
		return g.CBX
	}
	return g.CBY
}

// Valid reports whether extraction found no local inconsistency.
func (g *GSB) Valid() bool {
	return len(g.SB.Issues) == 0 && len(g.CBX.Issues) == 0 && len(g.CBY.Issues) == 0
}

type hasher struct {
	buf [8]byte
	h   interface {
		Write([]byte) (int, error)
		Sum64() uint64
	}
}

func newHasher() *hasher {
	return &hasher{h: fnv.New64a()}
}

func (h *hasher) int(v int) {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(v))
	h.h.Write(h.buf[:])
}

func (h *hasher) bool(v bool) {
	if v {
		h.int(1)
	} else {
		h.int(0)
	}
}

func (h *hasher) drivers(ds []Driver) {
	h.int(len(ds))
	for _, d := range ds {
		h.int(int(d.Kind))
		h.int(int(d.Side))
		h.int(d.Index)
		h.int(d.DX)
		h.int(d.DY)
		h.int(d.PTC)
		h.int(int(d.Switch))
		if d.Kind == DriverForeign {
			h.int(int(d.Node))
		}
	}
}

func (h *hasher) sum() uint64 {
	return h.h.Sum64()
}
