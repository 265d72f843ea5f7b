package rrgraph

import "fmt"

// NodeType classifies a routing-resource node.
type NodeType uint8

const (
	NodeSource NodeType = iota
	NodeSink
	NodeOPin
	NodeIPin
	NodeChanX
	NodeChanY
)

var nodeTypeNames = map[NodeType]string{
	NodeSource: "SOURCE",
	NodeSink:   "SINK",
	NodeOPin:   "OPIN",
	NodeIPin:   "IPIN",
	NodeChanX:  "CHANX",
	NodeChanY:  "CHANY",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", t)
}

// IsChannel reports whether the node type is a routing track.
func (t NodeType) IsChannel() bool {
	return t == NodeChanX || t == NodeChanY
}

// ParseNodeType converts the textual node type used in device state files.
func ParseNodeType(s string) (NodeType, error) {
	for t, name := range nodeTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("rrgraph: unknown node type %q", s)
}

// Direction is the signal direction of a routing track.
type Direction uint8

const (
	DirNone Direction = iota
	DirInc
	DirDec
	DirBi
)

var directionNames = map[Direction]string{
	DirNone: "NONE",
	DirInc:  "INC",
	DirDec:  "DEC",
	DirBi:   "BI",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection converts the textual direction used in device state files.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("rrgraph: unknown direction %q", s)
}

// Side is one of the four sides of a tile or switch block.
type Side uint8

const (
	SideTop Side = iota
	SideRight
	SideBottom
	SideLeft
)

// NumSides is the number of tile sides.
const NumSides = 4

// Sides lists all sides in canonical order.
var Sides = [NumSides]Side{SideTop, SideRight, SideBottom, SideLeft}

var sideNames = map[Side]string{
	SideTop:    "TOP",
	SideRight:  "RIGHT",
	SideBottom: "BOTTOM",
	SideLeft:   "LEFT",
}

func (s Side) String() string {
	if name, ok := sideNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Side(%d)", s)
}

// Opposite returns the side facing s.
func (s Side) Opposite() Side {
	return (s + 2) % NumSides
}

// ParseSide converts the textual side used in device state files.
func ParseSide(s string) (Side, error) {
	for side, name := range sideNames {
		if name == s {
			return side, nil
		}
	}
	return 0, fmt.Errorf("rrgraph: unknown side %q", s)
}

// NodeID indexes a node in the graph. Negative values are invalid.
type NodeID int

// InvalidNode marks the absence of a node.
const InvalidNode NodeID = -1

// EdgeID indexes an edge in the graph.
type EdgeID int

// SwitchID indexes a routing switch.
type SwitchID int

// SegmentID indexes a wire segment type. Pins use NoSegment.
type SegmentID int

// NoSegment is the segment of non-channel nodes.
const NoSegment SegmentID = -1

// Node is one routing resource.
type Node struct {
	ID        NodeID
	Type      NodeType
	Direction Direction
	XLow      int
	YLow      int
	XHigh     int
	YHigh     int
	PTC       int       // track number for channels, pin number for pins
	Side      Side      // tile side for IPIN/OPIN
	Segment   SegmentID // NoSegment for non-channel nodes
}

// Edge is a programmable or fixed connection between two nodes.
type Edge struct {
	ID     EdgeID
	From   NodeID
	To     NodeID
	Switch SwitchID
}

// Switch describes a routing switch type.
type Switch struct {
	ID   SwitchID
	Name string
}

// Segment describes a wire segment type.
type Segment struct {
	ID     SegmentID
	Name   string
	Length int
}
