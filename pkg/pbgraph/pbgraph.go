// Package pbgraph expands pb types into instance graphs: one node per pb
// instance across every mode, with a pin per port bit.
package pbgraph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
)

// Node is one pb instance.
type Node struct {
	Type   *arch.PbType
	Parent *Node
	// Mode is the parent mode holding this instance, nil for roots.
	Mode *arch.Mode
	// Placement is the instance number among its siblings, 0..NumPb-1.
	Placement int
	// Index is unique among all nodes of the same pb type, assigned in
	// depth-first order.
	Index int

	// Children holds the instances of each mode, parallel to Type.Modes.
	Children [][]*Node
	Pins     []*Pin

	// Physical is the node implementing this one in silicon, set by
	// Graph.BindPhysical. Physical nodes point at themselves.
	Physical *Node
}

func (n *Node) String() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		parts = append(parts, fmt.Sprintf("%s[%d]", cur.Type.Name, cur.Placement))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Pin returns the pin for bit of the named port.
func (n *Node) Pin(port string, bit int) (*Pin, bool) {
	for _, p := range n.Pins {
		if p.Port.Name == port && p.Bit == bit {
			return p, true
		}
	}
	return nil, false
}

// PortPins returns the pins of the named port in bit order.
func (n *Node) PortPins(port string) []*Pin {
	var out []*Pin
	for _, p := range n.Pins {
		if p.Port.Name == port {
			out = append(out, p)
		}
	}
	return out
}

// ChildrenOf returns the instances of the named mode.
func (n *Node) ChildrenOf(mode string) []*Node {
	for i, m := range n.Type.Modes {
		if m.Name == mode {
			return n.Children[i]
		}
	}
	return nil
}

// IsPhysical reports whether the node lies entirely inside physical modes.
func (n *Node) IsPhysical() bool {
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		phys, ok := cur.Parent.Type.ResolvePhysicalMode()
		if !ok || phys != cur.Mode {
			return false
		}
	}
	return true
}

// Pin is one bit of a pb port.
type Pin struct {
	Node *Node
	Port arch.PbPort
	Bit  int
	// Physical is the pin implementing this one, set by Graph.BindPhysical.
	Physical *Pin
}

func (p *Pin) String() string {
	return fmt.Sprintf("%s.%s[%d]", p.Node, p.Port.Name, p.Bit)
}

// Graph is the expanded pb graph of every top-level pb type.
type Graph struct {
	Roots  []*Node
	byType map[*arch.PbType][]*Node
}

// Build expands the given top-level pb types. Each root is expanded once;
// it stands for every placed instance of its tile type.
func Build(roots []*arch.PbType) *Graph {
	g := &Graph{byType: make(map[*arch.PbType][]*Node)}
	for _, root := range roots {
		g.Roots = append(g.Roots, g.expand(root, nil, nil, 0))
	}
	return g
}

func (g *Graph) expand(t *arch.PbType, parent *Node, mode *arch.Mode, placement int) *Node {
	n := &Node{
		Type:      t,
		Parent:    parent,
		Mode:      mode,
		Placement: placement,
		Index:     len(g.byType[t]),
		Children:  make([][]*Node, len(t.Modes)),
	}
	g.byType[t] = append(g.byType[t], n)
	for _, port := range t.Ports {
		for bit := 0; bit < port.Width; bit++ {
			n.Pins = append(n.Pins, &Pin{Node: n, Port: port, Bit: bit})
		}
	}
	for i, m := range t.Modes {
		for _, child := range m.Children {
			for p := 0; p < child.NumPb; p++ {
				n.Children[i] = append(n.Children[i], g.expand(child, n, m, p))
			}
		}
	}
	return n
}

// Root returns the expanded node of a top-level pb type.
func (g *Graph) Root(name string) (*Node, bool) {
	for _, r := range g.Roots {
		if r.Type.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Nodes returns every instance of a pb type in index order.
func (g *Graph) Nodes(t *arch.PbType) []*Node {
	return g.byType[t]
}

// Walk visits every node depth first.
func (g *Graph) Walk(visit func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		visit(n)
		for _, mode := range n.Children {
			for _, c := range mode {
				walk(c)
			}
		}
	}
	for _, r := range g.Roots {
		walk(r)
	}
}

// BindPhysical links operating-mode nodes and pins to the physical
// instances implementing them. Physical nodes bind to themselves. An
// operating node of type P with physical counterpart Q and index i binds to
// the Q node with index i*IndexFactor+IndexOffset; its pins bind by the
// port's physical name. Width mismatches are returned as warnings and bind
// the common bits only. Unresolvable references are errors.
func (g *Graph) BindPhysical(pbTypes []*arch.PbType) (warnings []string, err error) {
	g.Walk(func(n *Node) {
		if n.IsPhysical() {
			n.Physical = n
			for _, p := range n.Pins {
				p.Physical = p
			}
		}
	})

	for _, root := range pbTypes {
		arch.Walk(root, func(t *arch.PbType) {
			if err != nil || t.PhysicalPbType == "" {
				return
			}
			var phys *arch.PbType
			phys, err = arch.FindPbType(pbTypes, t.PhysicalPbType)
			if err != nil {
				err = errors.Wrapf(err, "pbgraph: %s", t.Path())
				return
			}
			var w []string
			w, err = g.bindType(t, phys)
			warnings = append(warnings, w...)
		})
		if err != nil {
			return warnings, err
		}
	}

	g.Walk(func(n *Node) {
		if n.Physical == nil && n.Type.IsPrimitive() {
			warnings = append(warnings, fmt.Sprintf("pbgraph: %s has no physical counterpart", n))
		}
	})
	return warnings, nil
}

func (g *Graph) bindType(t, phys *arch.PbType) ([]string, error) {
	var warnings []string
	targets := g.byType[phys]
	factor := t.IndexFactor
	if factor == 0 {
		factor = 1
	}
	for _, n := range g.byType[t] {
		idx := n.Index*factor + t.IndexOffset
		if idx < 0 || idx >= len(targets) {
			return warnings, errors.Errorf("pbgraph: %s maps to %s index %d, only %d instances exist",
				n, phys.Path(), idx, len(targets))
		}
		target := targets[idx]
		n.Physical = target

		for _, port := range t.Ports {
			name := port.PhysicalPort
			if name == "" {
				name = port.Name
			}
			pport, ok := phys.Port(name)
			if !ok {
				return warnings, errors.Errorf("pbgraph: %s port %s maps to missing port %s.%s",
					t.Path(), port.Name, phys.Path(), name)
			}
			width := port.Width
			if width > pport.Width {
				if n.Index == 0 {
					warnings = append(warnings, fmt.Sprintf("pbgraph: %s port %s is %d bits wide, physical port %s.%s only %d",
						t.Path(), port.Name, port.Width, phys.Path(), name, pport.Width))
				}
				width = pport.Width
			}
			for bit := 0; bit < width; bit++ {
				pin, _ := n.Pin(port.Name, bit)
				ppin, _ := target.Pin(name, bit)
				pin.Physical = ppin
			}
		}
	}
	return warnings, nil
}
