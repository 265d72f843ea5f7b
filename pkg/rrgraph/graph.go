package rrgraph

import (
	"fmt"
	"sort"
	"sync"
)

// View is the read-only routing-resource graph consumed by the link
// pipeline. *Graph implements it.
type View interface {
	NumNodes() int
	Node(id NodeID) Node
	InEdges(id NodeID) []EdgeID
	OutEdges(id NodeID) []EdgeID
	Edge(id EdgeID) Edge
	NumEdges() int
	Switch(id SwitchID) (Switch, bool)
	Switches() []Switch
	Segments() []Segment
	// ChannelNodes returns the CHANX/CHANY nodes covering channel (x, y),
	// sorted by track number.
	ChannelNodes(t NodeType, x, y int) []NodeID
	// FindPin returns the IPIN/OPIN node with the given pin number on tile (x, y).
	FindPin(t NodeType, x, y, ptc int) (NodeID, bool)
}

type chanKey struct {
	t    NodeType
	x, y int
}

type pinKey struct {
	t         NodeType
	x, y, ptc int
}

// Graph is an in-memory routing-resource graph. Nodes, edges, switches and
// segments are appended while building; lookups are indexed lazily on first
// use.
type Graph struct {
	nodes    []Node
	edges    []Edge
	in       [][]EdgeID
	out      [][]EdgeID
	switches []Switch
	segments []Segment

	indexOnce *sync.Once
	channels  map[chanKey][]NodeID
	pins      map[pinKey]NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{indexOnce: &sync.Once{}}
}

// AddSwitch registers a switch type and returns its id.
func (g *Graph) AddSwitch(name string) SwitchID {
	id := SwitchID(len(g.switches))
	g.switches = append(g.switches, Switch{ID: id, Name: name})
	return id
}

// AddSegment registers a wire segment type and returns its id.
func (g *Graph) AddSegment(name string, length int) SegmentID {
	id := SegmentID(len(g.segments))
	g.segments = append(g.segments, Segment{ID: id, Name: name, Length: length})
	return id
}

// AddNode appends a node. The node's ID field is overwritten with the
// assigned id, which is returned.
func (g *Graph) AddNode(n Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	if !n.Type.IsChannel() {
		n.Segment = NoSegment
	}
	g.nodes = append(g.nodes, n)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	g.indexOnce = &sync.Once{}
	return n.ID
}

// AddEdge connects two existing nodes through a registered switch.
func (g *Graph) AddEdge(from, to NodeID, sw SwitchID) (EdgeID, error) {
	if !g.valid(from) || !g.valid(to) {
		return 0, fmt.Errorf("rrgraph: edge %d -> %d references unknown node", from, to)
	}
	if sw < 0 || int(sw) >= len(g.switches) {
		return 0, fmt.Errorf("rrgraph: edge %d -> %d references unknown switch %d", from, to, sw)
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{ID: id, From: from, To: to, Switch: sw})
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
	return id, nil
}

// MustAddEdge is AddEdge for graph construction code that already
// guarantees valid endpoints. It panics on error.
func (g *Graph) MustAddEdge(from, to NodeID, sw SwitchID) EdgeID {
	id, err := g.AddEdge(from, to, sw)
	if err != nil {
		panic(err)
	}
	return id
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// NumNodes implements View.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges implements View.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Node implements View.
func (g *Graph) Node(id NodeID) Node { return g.nodes[id] }

// InEdges implements View.
func (g *Graph) InEdges(id NodeID) []EdgeID { return g.in[id] }

// OutEdges implements View.
func (g *Graph) OutEdges(id NodeID) []EdgeID { return g.out[id] }

// Edge implements View.
func (g *Graph) Edge(id EdgeID) Edge { return g.edges[id] }

// Switch implements View.
func (g *Graph) Switch(id SwitchID) (Switch, bool) {
	if id < 0 || int(id) >= len(g.switches) {
		return Switch{}, false
	}
	return g.switches[id], true
}

// Switches implements View.
func (g *Graph) Switches() []Switch {
	out := make([]Switch, len(g.switches))
	copy(out, g.switches)
	return out
}

// Segments implements View.
func (g *Graph) Segments() []Segment {
	out := make([]Segment, len(g.segments))
	copy(out, g.segments)
	return out
}

// ChannelNodes implements View.
func (g *Graph) ChannelNodes(t NodeType, x, y int) []NodeID {
	g.buildIndex()
	return g.channels[chanKey{t: t, x: x, y: y}]
}

// FindPin implements View.
func (g *Graph) FindPin(t NodeType, x, y, ptc int) (NodeID, bool) {
	g.buildIndex()
	id, ok := g.pins[pinKey{t: t, x: x, y: y, ptc: ptc}]
	return id, ok
}

func (g *Graph) buildIndex() {
	g.indexOnce.Do(func() {
		g.channels = make(map[chanKey][]NodeID)
		g.pins = make(map[pinKey]NodeID)
		for _, n := range g.nodes {
			switch n.Type {
			case NodeChanX:
				for x := n.XLow; x <= n.XHigh; x++ {
					k := chanKey{t: n.Type, x: x, y: n.YLow}
					g.channels[k] = append(g.channels[k], n.ID)
				}
			case NodeChanY:
				for y := n.YLow; y <= n.YHigh; y++ {
					k := chanKey{t: n.Type, x: n.XLow, y: y}
					g.channels[k] = append(g.channels[k], n.ID)
				}
			case NodeIPin, NodeOPin:
				g.pins[pinKey{t: n.Type, x: n.XLow, y: n.YLow, ptc: n.PTC}] = n.ID
			}
		}
		for _, ids := range g.channels {
			sort.Slice(ids, func(i, j int) bool {
				a, b := g.nodes[ids[i]], g.nodes[ids[j]]
				if a.PTC != b.PTC {
					return a.PTC < b.PTC
				}
				return a.ID < b.ID
			})
		}
	})
}

// Drivers returns the source nodes of all edges entering id, in edge order.
func Drivers(v View, id NodeID) []NodeID {
	edges := v.InEdges(id)
	out := make([]NodeID, 0, len(edges))
	for _, e := range edges {
		out = append(out, v.Edge(e).From)
	}
	return out
}
