package rrgsb

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// ErrUnsupportedTopology reports a track the switch-block model cannot
// describe, such as a bi-directional wire.
var ErrUnsupportedTopology = errors.New("rrgsb: unsupported topology")

type tileSide struct {
	x, y int
	side rrgraph.Side
}

// Extractor extracts GSBs from a routing graph. It indexes the input pins
// of the graph once, so extracting every coordinate of a device stays
// linear in the graph size.
type Extractor struct {
	g     rrgraph.View
	ipins map[tileSide][]rrgraph.NodeID
}

// NewExtractor indexes g for extraction.
func NewExtractor(g rrgraph.View) *Extractor {
	e := &Extractor{g: g, ipins: make(map[tileSide][]rrgraph.NodeID)}
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(rrgraph.NodeID(i))
		if n.Type != rrgraph.NodeIPin {
			continue
		}
		k := tileSide{x: n.XLow, y: n.YLow, side: n.Side}
		e.ipins[k] = append(e.ipins[k], n.ID)
	}
	for _, ids := range e.ipins {
		sort.Slice(ids, func(i, j int) bool {
			a, b := g.Node(ids[i]), g.Node(ids[j])
			if a.PTC != b.PTC {
				return a.PTC < b.PTC
			}
			return a.ID < b.ID
		})
	}
	return e
}

// Extract builds the GSB at c from g. See Extractor.Extract.
func Extract(g rrgraph.View, c Coordinate) (*GSB, error) {
	return NewExtractor(g).Extract(c)
}

// sideChannel returns the channel on side s of the GSB at c.
func sideChannel(c Coordinate, s rrgraph.Side) (rrgraph.NodeType, int, int) {
	switch s {
	case rrgraph.SideTop:
		return rrgraph.NodeChanY, c.X, c.Y + 1
	case rrgraph.SideRight:
		return rrgraph.NodeChanX, c.X + 1, c.Y
	case rrgraph.SideBottom:
		return rrgraph.NodeChanY, c.X, c.Y
	default:
		return rrgraph.NodeChanX, c.X, c.Y
	}
}

// portDirection maps a track direction to its direction relative to the
// switch block on side s.
func portDirection(s rrgraph.Side, d rrgraph.Direction) PortDirection {
	switch d {
	case rrgraph.DirInc:
		if s == rrgraph.SideTop || s == rrgraph.SideRight {
			return PortOut
		}
		return PortIn
	case rrgraph.DirDec:
		if s == rrgraph.SideTop || s == rrgraph.SideRight {
			return PortIn
		}
		return PortOut
	}
	return PortNone
}

// startsHere reports whether an OUT track on side s begins at the GSB c.
func startsHere(c Coordinate, s rrgraph.Side, n rrgraph.Node) bool {
	switch s {
	case rrgraph.SideTop:
		return n.YLow == c.Y+1
	case rrgraph.SideRight:
		return n.XLow == c.X+1
	case rrgraph.SideBottom:
		return n.YHigh == c.Y
	default:
		return n.XHigh == c.X
	}
}

// Extract builds the switch block and both connection blocks at c.
//
// Tracks on each side are listed by track number. An OUT track that starts
// here records its drivers relative to the GSB: IN tracks by side and
// index, output pins by tile offset and pin number. Local inconsistencies
// are collected as issues; bi-directional tracks fail with
// ErrUnsupportedTopology.
func (e *Extractor) Extract(c Coordinate) (*GSB, error) {
	sb := &Topology{Coordinate: c}
	inIndex := make(map[rrgraph.NodeID]Driver)

	for _, s := range rrgraph.Sides {
		t, x, y := sideChannel(c, s)
		for i, id := range e.g.ChannelNodes(t, x, y) {
			n := e.g.Node(id)
			if n.Direction == rrgraph.DirBi {
				return nil, errors.Wrapf(ErrUnsupportedTopology, "%s node %d on side %s of GSB %s is bi-directional", n.Type, id, s, c)
			}
			dir := portDirection(s, n.Direction)
			if dir == PortNone {
				sb.Issues = append(sb.Issues, fmt.Sprintf("%s node %d on side %s has no direction", n.Type, id, s))
			}
			if dir == PortIn {
				inIndex[id] = Driver{Kind: DriverTrack, Side: s, Index: i, Node: id}
			}
			sb.Sides[s] = append(sb.Sides[s], Track{
				Node:      id,
				Direction: dir,
				Segment:   n.Segment,
				Passing:   dir == PortOut && !startsHere(c, s, n),
			})
		}
	}

	for _, s := range rrgraph.Sides {
		for i := range sb.Sides[s] {
			tr := &sb.Sides[s][i]
			if tr.Direction != PortOut || tr.Passing {
				continue
			}
			tr.Drivers = e.sbDrivers(c, tr.Node, inIndex, sb)
			if len(tr.Drivers) == 0 {
				sb.Issues = append(sb.Issues, fmt.Sprintf("track node %d on side %s is not driven", tr.Node, s))
			}
		}
	}

	return &GSB{
		Coordinate: c,
		SB:         sb,
		CBX:        e.extractCB(c, CBX, sb),
		CBY:        e.extractCB(c, CBY, sb),
	}, nil
}

func (e *Extractor) sbDrivers(c Coordinate, id rrgraph.NodeID, inIndex map[rrgraph.NodeID]Driver, sb *Topology) []Driver {
	var drivers []Driver
	for _, eid := range e.g.InEdges(id) {
		edge := e.g.Edge(eid)
		src := e.g.Node(edge.From)
		switch {
		case src.Type.IsChannel():
			if d, ok := inIndex[src.ID]; ok {
				d.Switch = edge.Switch
				drivers = append(drivers, d)
				continue
			}
		case src.Type == rrgraph.NodeOPin:
			dx, dy := src.XLow-c.X, src.YLow-c.Y
			if dx >= 0 && dx <= 1 && dy >= 0 && dy <= 1 {
				drivers = append(drivers, Driver{Kind: DriverOPin, DX: dx, DY: dy, PTC: src.PTC, Switch: edge.Switch, Node: src.ID})
				continue
			}
		}
		sb.Issues = append(sb.Issues, fmt.Sprintf("track node %d is driven by %s node %d outside the GSB", id, src.Type, src.ID))
		drivers = append(drivers, Driver{Kind: DriverForeign, Switch: edge.Switch, Node: src.ID})
	}
	sortDrivers(drivers)
	return drivers
}

type pinGroup struct {
	group rrgraph.Side
	key   tileSide
}

// cbPinGroups returns, for a connection block, the tile and pin side of
// each group of input pins facing its channel.
func cbPinGroups(c Coordinate, t CBType) [2]pinGroup {
	if t == CBX {
		return [2]pinGroup{
			{group: rrgraph.SideTop, key: tileSide{x: c.X, y: c.Y + 1, side: rrgraph.SideBottom}},
			{group: rrgraph.SideBottom, key: tileSide{x: c.X, y: c.Y, side: rrgraph.SideTop}},
		}
	}
	return [2]pinGroup{
		{group: rrgraph.SideRight, key: tileSide{x: c.X + 1, y: c.Y, side: rrgraph.SideLeft}},
		{group: rrgraph.SideLeft, key: tileSide{x: c.X, y: c.Y, side: rrgraph.SideRight}},
	}
}

func (e *Extractor) extractCB(c Coordinate, t CBType, sb *Topology) *CBTopology {
	cb := &CBTopology{Coordinate: c, Type: t}
	side := t.Side()
	chanIndex := make(map[rrgraph.NodeID]int)
	for i, tr := range sb.Sides[side] {
		cb.Channel = append(cb.Channel, Track{Node: tr.Node, Direction: tr.Direction, Segment: tr.Segment})
		chanIndex[tr.Node] = i
	}

	for _, grp := range cbPinGroups(c, t) {
		for _, id := range e.ipins[grp.key] {
			n := e.g.Node(id)
			pin := IPin{Node: id, Group: grp.group, PTC: n.PTC}
			for _, eid := range e.g.InEdges(id) {
				edge := e.g.Edge(eid)
				src := e.g.Node(edge.From)
				if src.Type == rrgraph.NodeOPin {
					// direct connection, not part of the connection block
					continue
				}
				if i, ok := chanIndex[src.ID]; ok {
					pin.Drivers = append(pin.Drivers, Driver{Kind: DriverTrack, Side: side, Index: i, Switch: edge.Switch, Node: src.ID})
					continue
				}
				cb.Issues = append(cb.Issues, fmt.Sprintf("IPIN node %d is driven by %s node %d outside %s", id, src.Type, src.ID, t))
				pin.Drivers = append(pin.Drivers, Driver{Kind: DriverForeign, Switch: edge.Switch, Node: src.ID})
			}
			sortDrivers(pin.Drivers)
			cb.IPins = append(cb.IPins, pin)
		}
	}
	return cb
}
