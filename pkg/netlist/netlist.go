// Package netlist holds the post-implementation design state the link
// pipeline reads: the clustered netlist, block placement and net routing.
package netlist

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// BlockID identifies a clustered block.
type BlockID int

// NetID identifies a net.
type NetID int

// ClusterBlock is one packed block of the clustered netlist. TileType names
// the physical tile type it must be placed on; Atoms lists the atom-level
// blocks packed into it.
type ClusterBlock struct {
	ID       BlockID
	Name     string
	TileType string
	Atoms    []string
}

// Net is a logical net of the clustered netlist.
type Net struct {
	ID   NetID
	Name string
}

// Clustering is the clustered netlist.
type Clustering struct {
	Blocks []ClusterBlock
	Nets   []Net
}

// AddBlock appends a block and returns its id.
func (c *Clustering) AddBlock(name, tileType string, atoms ...string) BlockID {
	id := BlockID(len(c.Blocks))
	c.Blocks = append(c.Blocks, ClusterBlock{ID: id, Name: name, TileType: tileType, Atoms: atoms})
	return id
}

// AddNet appends a net and returns its id.
func (c *Clustering) AddNet(name string) NetID {
	id := NetID(len(c.Nets))
	c.Nets = append(c.Nets, Net{ID: id, Name: name})
	return id
}

// Block returns the block with the given id.
func (c *Clustering) Block(id BlockID) (ClusterBlock, bool) {
	if id < 0 || int(id) >= len(c.Blocks) {
		return ClusterBlock{}, false
	}
	return c.Blocks[id], true
}

// Net returns the net with the given id.
func (c *Clustering) Net(id NetID) (Net, bool) {
	if id < 0 || int(id) >= len(c.Nets) {
		return Net{}, false
	}
	return c.Nets[id], true
}

// Location is a placed block position. Subtile distinguishes blocks sharing
// one grid location, such as I/O pads.
type Location struct {
	X       int
	Y       int
	Subtile int
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d).%d", l.X, l.Y, l.Subtile)
}

// Placement maps clustered blocks to locations.
type Placement struct {
	locations map[BlockID]Location
}

// NewPlacement creates an empty placement.
func NewPlacement() *Placement {
	return &Placement{locations: make(map[BlockID]Location)}
}

// Place records the location of a block, replacing any previous one.
func (p *Placement) Place(id BlockID, loc Location) {
	p.locations[id] = loc
}

// Location returns the location of a block.
func (p *Placement) Location(id BlockID) (Location, bool) {
	loc, ok := p.locations[id]
	return loc, ok
}

// Blocks returns the placed block ids in ascending order.
func (p *Placement) Blocks() []BlockID {
	out := make([]BlockID, 0, len(p.locations))
	for id := range p.locations {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RouteNode is one routing-resource node used by a net. Parent is the node
// it is reached from, or rrgraph.InvalidNode for the route source.
type RouteNode struct {
	Node   rrgraph.NodeID
	Parent rrgraph.NodeID
}

// Routing maps nets to their route trees.
type Routing struct {
	trees map[NetID][]RouteNode
}

// NewRouting creates an empty routing.
func NewRouting() *Routing {
	return &Routing{trees: make(map[NetID][]RouteNode)}
}

// AddRoute appends a node to the route tree of a net.
func (r *Routing) AddRoute(net NetID, node, parent rrgraph.NodeID) {
	r.trees[net] = append(r.trees[net], RouteNode{Node: node, Parent: parent})
}

// Tree returns the route tree of a net in insertion order.
func (r *Routing) Tree(net NetID) []RouteNode {
	return r.trees[net]
}

// Nets returns the routed net ids in ascending order.
func (r *Routing) Nets() []NetID {
	out := make([]NetID, 0, len(r.trees))
	for id := range r.trees {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
