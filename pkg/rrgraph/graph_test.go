package rrgraph

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func buildSmallGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	sw := g.AddSwitch("mux0")
	seg := g.AddSegment("L2", 2)

	a := g.AddNode(Node{Type: NodeChanX, Direction: DirInc, XLow: 1, YLow: 0, XHigh: 2, YHigh: 0, PTC: 2, Segment: seg})
	b := g.AddNode(Node{Type: NodeChanX, Direction: DirDec, XLow: 1, YLow: 0, XHigh: 1, YHigh: 0, PTC: 1, Segment: seg})
	pin := g.AddNode(Node{Type: NodeIPin, XLow: 1, YLow: 0, XHigh: 1, YHigh: 0, PTC: 3, Side: SideTop, Segment: seg})

	if _, err := g.AddEdge(a, pin, sw); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := g.AddEdge(b, pin, sw); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g
}

func TestChannelNodesSortedByTrack(t *testing.T) {
	g := buildSmallGraph(t)

	got := g.ChannelNodes(NodeChanX, 1, 0)
	if len(got) != 2 {
		t.Fatalf("ChannelNodes(1,0) = %v, want 2 nodes", got)
	}
	if g.Node(got[0]).PTC != 1 || g.Node(got[1]).PTC != 2 {
		t.Fatalf("channel nodes not sorted by PTC: %v", got)
	}

	// The length-2 wire also covers x=2.
	if got := g.ChannelNodes(NodeChanX, 2, 0); len(got) != 1 {
		t.Fatalf("ChannelNodes(2,0) = %v, want 1 node", got)
	}
}

func TestFindPinAndDrivers(t *testing.T) {
	g := buildSmallGraph(t)

	pin, ok := g.FindPin(NodeIPin, 1, 0, 3)
	if !ok {
		t.Fatalf("FindPin did not find IPIN ptc 3")
	}
	if g.Node(pin).Segment != NoSegment {
		t.Errorf("pin segment = %d, want NoSegment", g.Node(pin).Segment)
	}

	drivers := Drivers(g, pin)
	if len(drivers) != 2 || drivers[0] != 0 || drivers[1] != 1 {
		t.Fatalf("Drivers = %v, want [0 1]", drivers)
	}

	if _, ok := g.FindPin(NodeOPin, 1, 0, 3); ok {
		t.Errorf("FindPin matched an OPIN that does not exist")
	}
}

func TestIndexRebuiltAfterAddNode(t *testing.T) {
	g := buildSmallGraph(t)
	_ = g.ChannelNodes(NodeChanX, 1, 0)

	g.AddNode(Node{Type: NodeChanX, Direction: DirInc, XLow: 1, YLow: 0, XHigh: 1, YHigh: 0, PTC: 0})
	if got := g.ChannelNodes(NodeChanX, 1, 0); len(got) != 3 {
		t.Fatalf("ChannelNodes after AddNode = %v, want 3 nodes", got)
	}
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := New()
	sw := g.AddSwitch("sw")
	n := g.AddNode(Node{Type: NodeOPin})
	if _, err := g.AddEdge(n, 7, sw); err == nil {
		t.Fatalf("expected error for unknown sink node")
	}
	if _, err := g.AddEdge(n, n, 3); err == nil {
		t.Fatalf("expected error for unknown switch")
	}
}

func TestCheckSupported(t *testing.T) {
	g := buildSmallGraph(t)
	if err := CheckSupported(g); err != nil {
		t.Fatalf("uni-directional graph rejected: %v", err)
	}

	// A bi-directional pin is irrelevant; only tracks are checked.
	g.AddNode(Node{Type: NodeOPin, Direction: DirBi})
	if err := CheckSupported(g); err != nil {
		t.Fatalf("pin direction should be ignored: %v", err)
	}

	id := g.AddNode(Node{Type: NodeChanY, Direction: DirBi, XLow: 0, YLow: 1, XHigh: 0, YHigh: 1})
	err := CheckSupported(g)
	if !errors.Is(err, ErrBidirectional) {
		t.Fatalf("CheckSupported error = %v, want ErrBidirectional", err)
	}
	if !strings.Contains(err.Error(), "CHANY") {
		t.Errorf("diagnostic %q does not name the node category", err)
	}
	if !strings.Contains(err.Error(), "node "+strconv.Itoa(int(id))) {
		t.Errorf("diagnostic %q does not name node %d", err, id)
	}
}

func TestParseEnums(t *testing.T) {
	if nt, err := ParseNodeType("CHANX"); err != nil || nt != NodeChanX {
		t.Errorf("ParseNodeType(CHANX) = %v, %v", nt, err)
	}
	if _, err := ParseNodeType("WIRE"); err == nil {
		t.Errorf("ParseNodeType accepted unknown type")
	}
	if d, err := ParseDirection("DEC"); err != nil || d != DirDec {
		t.Errorf("ParseDirection(DEC) = %v, %v", d, err)
	}
	if s, err := ParseSide("LEFT"); err != nil || s != SideLeft {
		t.Errorf("ParseSide(LEFT) = %v, %v", s, err)
	}
	if SideTop.Opposite() != SideBottom || SideLeft.Opposite() != SideRight {
		t.Errorf("Opposite mismatch")
	}
}
