package annotation

import (
	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// RoutingAnnotation maps routing-resource nodes to the nets occupying them
// after routing. It is read-only once built.
type RoutingAnnotation struct {
	net  []netlist.NetID
	prev []rrgraph.NodeID
	used []bool
}

// AnnotateRoutingNets builds the node-to-net map from route trees. A node
// claimed by two different nets, or a route referencing a node outside the
// graph, is malformed routing data.
func AnnotateRoutingNets(g rrgraph.View, clustering *netlist.Clustering, routing *netlist.Routing) (*RoutingAnnotation, error) {
	n := g.NumNodes()
	ann := &RoutingAnnotation{
		net:  make([]netlist.NetID, n),
		prev: make([]rrgraph.NodeID, n),
		used: make([]bool, n),
	}
	for i := range ann.prev {
		ann.prev[i] = rrgraph.InvalidNode
	}
	for _, netID := range routing.Nets() {
		net, ok := clustering.Net(netID)
		if !ok {
			return nil, errors.Errorf("annotation: routing references unknown net %d", netID)
		}
		for _, rn := range routing.Tree(netID) {
			if rn.Node < 0 || int(rn.Node) >= n {
				return nil, errors.Errorf("annotation: net %s routes through unknown node %d", net.Name, rn.Node)
			}
			if rn.Parent != rrgraph.InvalidNode && (rn.Parent < 0 || int(rn.Parent) >= n) {
				return nil, errors.Errorf("annotation: net %s reaches node %d from unknown node %d", net.Name, rn.Node, rn.Parent)
			}
			if ann.used[rn.Node] && ann.net[rn.Node] != netID {
				other, _ := clustering.Net(ann.net[rn.Node])
				return nil, errors.Errorf("annotation: node %d is used by nets %s and %s", rn.Node, other.Name, net.Name)
			}
			ann.used[rn.Node] = true
			ann.net[rn.Node] = netID
			if rn.Parent != rrgraph.InvalidNode {
				ann.prev[rn.Node] = rn.Parent
			}
		}
	}
	return ann, nil
}

// NetOf returns the net routed through a node.
func (a *RoutingAnnotation) NetOf(id rrgraph.NodeID) (netlist.NetID, bool) {
	if id < 0 || int(id) >= len(a.used) || !a.used[id] {
		return 0, false
	}
	return a.net[id], true
}

// PrevNode returns the node a routed node is driven from, or
// rrgraph.InvalidNode.
func (a *RoutingAnnotation) PrevNode(id rrgraph.NodeID) rrgraph.NodeID {
	if id < 0 || int(id) >= len(a.prev) {
		return rrgraph.InvalidNode
	}
	return a.prev[id]
}

// NumUsedNodes returns the number of nodes carrying a net.
func (a *RoutingAnnotation) NumUsedNodes() int {
	count := 0
	for _, u := range a.used {
		if u {
			count++
		}
	}
	return count
}
