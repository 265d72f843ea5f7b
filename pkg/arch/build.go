package arch

import (
	"fmt"
	"math"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
)

// Build converts a parsed architecture file into an Architecture and
// validates cross references between its declarations.
func Build(file *File) (*Architecture, error) {
	a := New()
	for _, decl := range file.Decls {
		var err error
		switch {
		case decl.Circuit != nil:
			err = a.addCircuit(decl.Circuit)
		case decl.Switch != nil:
			err = bindModel(a.Switches, "switch", decl.Switch)
		case decl.Segment != nil:
			err = bindModel(a.Segments, "segment", decl.Segment)
		case decl.Direct != nil:
			err = a.addDirect(decl.Direct)
		case decl.PbType != nil:
			var pb *PbType
			pb, err = buildPbType(decl.PbType, nil)
			if err == nil {
				if _, dup := a.PbType(pb.Name); dup {
					err = fmt.Errorf("arch: %s: duplicate pb_type %q", decl.Pos, pb.Name)
				} else {
					a.PbTypes = append(a.PbTypes, pb)
				}
			}
		case decl.Simulation != nil:
			err = a.setSimulation(decl.Simulation)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

type attrSet struct {
	pos   lexer.Position
	owner string
	attrs map[string]*Attr
}

func newAttrSet(pos lexer.Position, owner string, attrs []*Attr, allowed ...string) (attrSet, error) {
	set := attrSet{pos: pos, owner: owner, attrs: make(map[string]*Attr, len(attrs))}
	for _, attr := range attrs {
		if _, dup := set.attrs[attr.Key]; dup {
			return set, fmt.Errorf("arch: %s: %s: duplicate attribute %q", attr.Pos, owner, attr.Key)
		}
		known := false
		for _, k := range allowed {
			if k == attr.Key {
				known = true
				break
			}
		}
		if !known {
			return set, fmt.Errorf("arch: %s: %s: unknown attribute %q", attr.Pos, owner, attr.Key)
		}
		set.attrs[attr.Key] = attr
	}
	return set, nil
}

func (s attrSet) text(key string) (string, bool) {
	attr, ok := s.attrs[key]
	if !ok || attr.Value == nil {
		return "", false
	}
	return attr.Value.Text(), true
}

func (s attrSet) required(key string) (string, error) {
	v, ok := s.text(key)
	if !ok {
		return "", fmt.Errorf("arch: %s: %s: missing attribute %q", s.pos, s.owner, key)
	}
	return v, nil
}

func (s attrSet) flag(key string) bool {
	_, ok := s.attrs[key]
	return ok
}

func (s attrSet) number(key string, def float64) (float64, error) {
	attr, ok := s.attrs[key]
	if !ok {
		return def, nil
	}
	if attr.Value == nil || attr.Value.Number == nil {
		return 0, fmt.Errorf("arch: %s: %s: attribute %q must be a number", attr.Pos, s.owner, key)
	}
	return *attr.Value.Number, nil
}

func (s attrSet) integer(key string, def int) (int, error) {
	v, err := s.number(key, float64(def))
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("arch: %s: %s: attribute %q must be an integer", s.pos, s.owner, key)
	}
	return int(v), nil
}

func (a *Architecture) addCircuit(d *NamedDecl) error {
	owner := "circuit_model " + d.Name
	attrs, err := newAttrSet(d.Pos, owner, d.Attrs,
		"type", "structure", "levels", "default", "const_input", "local_encoder")
	if err != nil {
		return err
	}
	typeName, err := attrs.required("type")
	if err != nil {
		return err
	}
	t, err := parseModelType(typeName)
	if err != nil {
		return fmt.Errorf("arch: %s: %s: %w", d.Pos, owner, err)
	}
	m := &CircuitModel{
		Name:          d.Name,
		Type:          t,
		IsDefault:     attrs.flag("default"),
		AddConstInput: attrs.flag("const_input"),
		LocalEncoder:  attrs.flag("local_encoder"),
	}
	if s, ok := attrs.text("structure"); ok {
		if t != ModelMux {
			return fmt.Errorf("arch: %s: %s: structure applies to mux models only", d.Pos, owner)
		}
		if m.Structure, err = parseStructure(s); err != nil {
			return fmt.Errorf("arch: %s: %s: %w", d.Pos, owner, err)
		}
	}
	if m.NumLevels, err = attrs.integer("levels", 1); err != nil {
		return err
	}
	if m.Structure == StructureMultiLevel && m.NumLevels < 2 {
		return fmt.Errorf("arch: %s: %s: multi_level structure needs levels >= 2", d.Pos, owner)
	}
	if err := a.Circuits.Add(m); err != nil {
		return fmt.Errorf("%w (at %s)", err, d.Pos)
	}
	return nil
}

func bindModel(bindings map[string]string, kind string, d *NamedDecl) error {
	owner := kind + " " + d.Name
	attrs, err := newAttrSet(d.Pos, owner, d.Attrs, "model")
	if err != nil {
		return err
	}
	model, err := attrs.required("model")
	if err != nil {
		return err
	}
	if _, dup := bindings[d.Name]; dup {
		return fmt.Errorf("arch: %s: duplicate %s", d.Pos, owner)
	}
	bindings[d.Name] = model
	return nil
}

func (a *Architecture) addDirect(d *NamedDecl) error {
	owner := "direct " + d.Name
	attrs, err := newAttrSet(d.Pos, owner, d.Attrs, "from", "to", "dx", "dy", "model")
	if err != nil {
		return err
	}
	rule := DirectRule{Name: d.Name}
	from, err := attrs.required("from")
	if err != nil {
		return err
	}
	to, err := attrs.required("to")
	if err != nil {
		return err
	}
	if rule.FromTile, rule.FromPort, err = splitTilePort(from); err != nil {
		return fmt.Errorf("arch: %s: %s: %w", d.Pos, owner, err)
	}
	if rule.ToTile, rule.ToPort, err = splitTilePort(to); err != nil {
		return fmt.Errorf("arch: %s: %s: %w", d.Pos, owner, err)
	}
	if rule.XOffset, err = attrs.integer("dx", 0); err != nil {
		return err
	}
	if rule.YOffset, err = attrs.integer("dy", 0); err != nil {
		return err
	}
	rule.CircuitModel, _ = attrs.text("model")
	for _, other := range a.Directs {
		if other.Name == rule.Name {
			return fmt.Errorf("arch: %s: duplicate %s", d.Pos, owner)
		}
	}
	a.Directs = append(a.Directs, rule)
	return nil
}

func splitTilePort(s string) (string, string, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected tile.port, got %q", s)
	}
	return parts[0], parts[1], nil
}

func (a *Architecture) setSimulation(d *SimulationDecl) error {
	attrs, err := newAttrSet(d.Pos, "simulation", d.Settings,
		"clock_frequency", "slack", "num_clock_cycles", "programming_clock_frequency")
	if err != nil {
		return err
	}
	sim := SimulationSetting{}
	if v, ok := attrs.text("clock_frequency"); !ok || v != "auto" {
		if sim.OperatingClockFrequency, err = attrs.number("clock_frequency", 0); err != nil {
			return err
		}
	}
	if sim.OperatingClockFrequencySlack, err = attrs.number("slack", 0); err != nil {
		return err
	}
	if v, ok := attrs.text("num_clock_cycles"); !ok || v != "auto" {
		if sim.NumClockCycles, err = attrs.integer("num_clock_cycles", 0); err != nil {
			return err
		}
	}
	if sim.ProgrammingClockFrequency, err = attrs.number("programming_clock_frequency", 0); err != nil {
		return err
	}
	if sim.OperatingClockFrequency < 0 || sim.OperatingClockFrequencySlack < 0 {
		return fmt.Errorf("arch: %s: simulation: frequency and slack must not be negative", d.Pos)
	}
	a.Sim = sim
	return nil
}

func buildPbType(d *PbTypeDecl, parent *Mode) (*PbType, error) {
	owner := "pb_type " + d.Name
	attrs, err := newAttrSet(d.Pos, owner, d.Attrs,
		"num_pb", "model", "physical_mode", "physical", "index_factor", "index_offset")
	if err != nil {
		return nil, err
	}
	pb := &PbType{Name: d.Name, Parent: parent}
	if pb.NumPb, err = attrs.integer("num_pb", 1); err != nil {
		return nil, err
	}
	if pb.NumPb < 1 {
		return nil, fmt.Errorf("arch: %s: %s: num_pb must be positive", d.Pos, owner)
	}
	pb.CircuitModel, _ = attrs.text("model")
	pb.PhysicalMode, _ = attrs.text("physical_mode")
	pb.PhysicalPbType, _ = attrs.text("physical")
	if pb.IndexFactor, err = attrs.integer("index_factor", 1); err != nil {
		return nil, err
	}
	if pb.IndexOffset, err = attrs.integer("index_offset", 0); err != nil {
		return nil, err
	}

	for _, item := range d.Body {
		switch {
		case item.Port != nil:
			port, err := buildPort(item.Port, owner)
			if err != nil {
				return nil, err
			}
			if _, dup := pb.Port(port.Name); dup {
				return nil, fmt.Errorf("arch: %s: %s: duplicate port %q", item.Port.Pos, owner, port.Name)
			}
			pb.Ports = append(pb.Ports, port)
		case item.Mode != nil:
			mode, err := buildMode(item.Mode, pb)
			if err != nil {
				return nil, err
			}
			if _, dup := pb.Mode(mode.Name); dup {
				return nil, fmt.Errorf("arch: %s: %s: duplicate mode %q", item.Mode.Pos, owner, mode.Name)
			}
			pb.Modes = append(pb.Modes, mode)
		}
	}
	if pb.PhysicalMode != "" {
		if _, ok := pb.Mode(pb.PhysicalMode); !ok {
			return nil, fmt.Errorf("arch: %s: %s: physical_mode %q is not declared", d.Pos, owner, pb.PhysicalMode)
		}
	}
	return pb, nil
}

func buildPort(d *PortDecl, owner string) (PbPort, error) {
	attrs, err := newAttrSet(d.Pos, owner+" port "+d.Name, d.Attrs, "physical")
	if err != nil {
		return PbPort{}, err
	}
	dir, err := grid.ParsePortDirection(d.Direction)
	if err != nil {
		return PbPort{}, err
	}
	port := PbPort{Name: d.Name, Direction: dir, Width: 1}
	if d.Width != nil {
		port.Width = *d.Width
	}
	if port.Width < 1 {
		return PbPort{}, fmt.Errorf("arch: %s: %s: port %q width must be positive", d.Pos, owner, d.Name)
	}
	port.PhysicalPort, _ = attrs.text("physical")
	return port, nil
}

func buildMode(d *ModeDecl, parent *PbType) (*Mode, error) {
	if _, err := newAttrSet(d.Pos, "mode "+d.Name, d.Attrs); err != nil {
		return nil, err
	}
	mode := &Mode{Name: d.Name, Parent: parent}
	for _, item := range d.Items {
		switch {
		case item.PbType != nil:
			child, err := buildPbType(item.PbType, mode)
			if err != nil {
				return nil, err
			}
			if _, dup := mode.Child(child.Name); dup {
				return nil, fmt.Errorf("arch: %s: mode %s: duplicate pb_type %q", item.PbType.Pos, d.Name, child.Name)
			}
			mode.Children = append(mode.Children, child)
		case item.Interconnect != nil:
			ic, err := buildInterconnect(item.Interconnect, mode)
			if err != nil {
				return nil, err
			}
			mode.Interconnects = append(mode.Interconnects, ic)
		}
	}
	return mode, nil
}

func buildInterconnect(d *NamedDecl, parent *Mode) (*Interconnect, error) {
	owner := "interconnect " + d.Name
	attrs, err := newAttrSet(d.Pos, owner, d.Attrs, "type", "inputs", "outputs", "model")
	if err != nil {
		return nil, err
	}
	typeName, err := attrs.required("type")
	if err != nil {
		return nil, err
	}
	ic := &Interconnect{Name: d.Name, Parent: parent}
	if ic.Type, err = parseInterconnectType(typeName); err != nil {
		return nil, fmt.Errorf("arch: %s: %s: %w", d.Pos, owner, err)
	}
	inputs, err := attrs.required("inputs")
	if err != nil {
		return nil, err
	}
	outputs, err := attrs.required("outputs")
	if err != nil {
		return nil, err
	}
	ic.Inputs = strings.Fields(inputs)
	ic.Outputs = strings.Fields(outputs)
	if len(ic.Inputs) == 0 || len(ic.Outputs) == 0 {
		return nil, fmt.Errorf("arch: %s: %s: inputs and outputs must not be empty", d.Pos, owner)
	}
	for _, ref := range append(append([]string(nil), ic.Inputs...), ic.Outputs...) {
		if _, err := ParsePortRef(ref); err != nil {
			return nil, fmt.Errorf("%w (at %s)", err, d.Pos)
		}
	}
	ic.CircuitModel, _ = attrs.text("model")
	return ic, nil
}

func (a *Architecture) validate() error {
	for name, model := range a.Switches {
		if _, ok := a.Circuits.CircuitModel(model); !ok {
			return fmt.Errorf("arch: switch %q references unknown circuit model %q", name, model)
		}
	}
	for name, model := range a.Segments {
		m, ok := a.Circuits.CircuitModel(model)
		if !ok {
			return fmt.Errorf("arch: segment %q references unknown circuit model %q", name, model)
		}
		if m.Type != ModelChanWire {
			return fmt.Errorf("arch: segment %q must use a chan_wire model, %q is %s", name, model, m.Type)
		}
	}
	for _, d := range a.Directs {
		if d.CircuitModel == "" {
			continue
		}
		if _, ok := a.Circuits.CircuitModel(d.CircuitModel); !ok {
			return fmt.Errorf("arch: direct %q references unknown circuit model %q", d.Name, d.CircuitModel)
		}
	}
	var err error
	for _, root := range a.PbTypes {
		Walk(root, func(pb *PbType) {
			if err != nil {
				return
			}
			if pb.PhysicalPbType != "" {
				if _, ferr := FindPbType(a.PbTypes, pb.PhysicalPbType); ferr != nil {
					err = fmt.Errorf("arch: pb_type %s: %w", pb.Path(), ferr)
				}
			}
		})
	}
	return err
}
