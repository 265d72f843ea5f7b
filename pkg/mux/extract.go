package mux

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/fabriclink/pkg/annotation"
	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/pbgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgsb"
)

// Sources is what shape extraction reads. PbGraph and PbTypes may be nil,
// in which case only routing multiplexers are extracted.
type Sources struct {
	Graph   rrgraph.View
	Device  *rrgsb.DeviceRRGSB
	Routing *annotation.RoutingModels
	PbGraph *pbgraph.Graph
	PbTypes *annotation.PbTypeAnnotation
}

// Extract enumerates every multiplexer of the device. Routing shapes come
// first, GSB by GSB in coordinate order: switch-block OUT tracks side by
// side, then connection-block input pins. Routing nodes no GSB covers are
// swept up afterwards in node order. Pb-graph shapes follow, one per
// output pin of each mux or complete interconnect of a physical mode.
//
// Nodes with fewer than two inputs need no multiplexer and are skipped.
// Output-pin to input-pin edges are direct connections, not mux inputs.
func Extract(src Sources) ([]Shape, []string) {
	x := &extractor{src: src, covered: make([]bool, src.Graph.NumNodes()), noModel: make(map[rrgraph.SwitchID]int)}
	x.routing()
	if src.PbGraph != nil && src.PbTypes != nil {
		x.pb()
	}
	var ids []rrgraph.SwitchID
	for id := range x.noModel {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		name := fmt.Sprintf("%d", id)
		if sw, ok := src.Graph.Switch(id); ok {
			name = sw.Name
		}
		x.warn("switch %q has no circuit model, %d multiplexers skipped", name, x.noModel[id])
	}
	return x.shapes, x.warnings
}

type extractor struct {
	src      Sources
	shapes   []Shape
	warnings []string
	covered  []bool
	noModel  map[rrgraph.SwitchID]int
}

func (x *extractor) warn(format string, args ...interface{}) {
	x.warnings = append(x.warnings, "mux: "+fmt.Sprintf(format, args...))
}

func (x *extractor) addRouting(id rrgraph.NodeID, drivers []rrgsb.Driver) {
	x.covered[id] = true
	if len(drivers) < 2 {
		return
	}
	model, ok := x.src.Routing.Switch(drivers[0].Switch)
	if !ok {
		x.noModel[drivers[0].Switch]++
		return
	}
	s := Shape{Instance: RoutingInstance(id), CircuitModel: model}
	for _, d := range drivers {
		s.Inputs = append(s.Inputs, Input{Node: d.Node})
	}
	x.shapes = append(x.shapes, s)
}

func (x *extractor) routing() {
	for _, c := range x.src.Device.Coordinates() {
		gsb, ok := x.src.Device.GSB(c)
		if !ok {
			continue
		}
		for _, s := range rrgraph.Sides {
			for _, tr := range gsb.SB.Sides[s] {
				if tr.Direction == rrgsb.PortOut && !tr.Passing {
					x.addRouting(tr.Node, tr.Drivers)
				}
			}
		}
		for _, cb := range []*rrgsb.CBTopology{gsb.CBX, gsb.CBY} {
			for _, pin := range cb.IPins {
				x.addRouting(pin.Node, pin.Drivers)
			}
		}
	}

	g := x.src.Graph
	for i := 0; i < g.NumNodes(); i++ {
		id := rrgraph.NodeID(i)
		n := g.Node(id)
		if x.covered[id] || !(n.Type.IsChannel() || n.Type == rrgraph.NodeIPin) {
			continue
		}
		var drivers []rrgsb.Driver
		for _, eid := range g.InEdges(id) {
			e := g.Edge(eid)
			if n.Type == rrgraph.NodeIPin && g.Node(e.From).Type == rrgraph.NodeOPin {
				continue
			}
			drivers = append(drivers, rrgsb.Driver{Kind: rrgsb.DriverForeign, Switch: e.Switch, Node: e.From})
		}
		sort.SliceStable(drivers, func(a, b int) bool { return drivers[a].Node < drivers[b].Node })
		x.addRouting(id, drivers)
	}
}

func (x *extractor) pb() {
	for _, root := range x.src.PbGraph.Roots {
		x.pbNode(root)
	}
}

func (x *extractor) pbNode(n *pbgraph.Node) {
	if n.Type.IsPrimitive() || !n.IsPhysical() {
		return
	}
	mode, ok := x.src.PbTypes.PhysicalMode(n.Type)
	if !ok {
		return
	}
	var children []*pbgraph.Node
	for i, m := range n.Type.Modes {
		if m == mode {
			children = n.Children[i]
		}
	}
	for _, ic := range mode.Interconnects {
		if ic.Type == arch.InterconnectDirect {
			continue
		}
		model, ok := x.src.PbTypes.InterconnectModel(ic)
		if !ok || model.Type != arch.ModelMux {
			x.warn("interconnect %s of %s has no mux model", ic.Name, n)
			continue
		}
		ins := x.resolve(n, children, ic, ic.Inputs)
		outs := x.resolve(n, children, ic, ic.Outputs)
		var outPins []*pbgraph.Pin
		for _, o := range outs {
			outPins = append(outPins, o...)
		}
		for j, out := range outPins {
			s := Shape{Instance: PbInstance(out.String() + "/" + ic.Name), CircuitModel: model}
			if ic.Type == arch.InterconnectComplete {
				for _, ref := range ins {
					for _, p := range ref {
						s.Inputs = append(s.Inputs, Input{Node: rrgraph.InvalidNode, Pin: p.String()})
					}
				}
			} else {
				for _, ref := range ins {
					if j < len(ref) {
						s.Inputs = append(s.Inputs, Input{Node: rrgraph.InvalidNode, Pin: ref[j].String()})
					}
				}
			}
			if s.Size() >= 2 {
				x.shapes = append(x.shapes, s)
			}
		}
	}
	for _, c := range children {
		x.pbNode(c)
	}
}

// resolve expands interconnect port references into pins, one slice per
// reference. A reference naming a child pb type covers all its instances.
func (x *extractor) resolve(n *pbgraph.Node, children []*pbgraph.Node, ic *arch.Interconnect, refs []string) [][]*pbgraph.Pin {
	var out [][]*pbgraph.Pin
	for _, s := range refs {
		ref, err := arch.ParsePortRef(s)
		if err != nil {
			x.warn("interconnect %s: %v", ic.Name, err)
			continue
		}
		owners := []*pbgraph.Node{n}
		if ref.Pb != n.Type.Name {
			owners = nil
			for _, c := range children {
				if c.Type.Name == ref.Pb {
					owners = append(owners, c)
				}
			}
		}
		var pins []*pbgraph.Pin
		for _, o := range owners {
			for _, p := range o.PortPins(ref.Port) {
				if ref.Bit < 0 || ref.Bit == p.Bit {
					pins = append(pins, p)
				}
			}
		}
		if len(pins) == 0 {
			x.warn("interconnect %s of %s: reference %q matches no pin", ic.Name, n, s)
			continue
		}
		out = append(out, pins)
	}
	return out
}

// BuildDeviceLibrary extracts every multiplexer of the device and folds
// them into a library.
func BuildDeviceLibrary(src Sources) (*Library, []string, error) {
	shapes, warnings := Extract(src)
	lib := NewLibrary()
	for _, s := range shapes {
		if _, err := lib.Insert(s); err != nil {
			return nil, warnings, err
		}
	}
	return lib, warnings, nil
}
