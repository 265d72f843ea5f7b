package arch

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
)

// PbPort is a port of a programmable-block type.
type PbPort struct {
	Name      string
	Direction grid.PortDirection
	Width     int
	// PhysicalPort names the port of the physical counterpart this port
	// binds to. Empty means the same name.
	PhysicalPort string
}

// PbType is a node of the logical block hierarchy. A pb type either holds
// modes (each a set of child pb types and interconnects) or is a primitive.
type PbType struct {
	Name  string
	NumPb int
	Ports []PbPort
	Modes []*Mode

	// Parent is nil for top-level pb types.
	Parent *Mode

	CircuitModel string // primitives only

	// PhysicalMode names the mode implemented in silicon. Empty means the
	// only mode, if there is exactly one.
	PhysicalMode string

	// PhysicalPbType is the path of the physical pb type an operating pb
	// type maps onto. Empty for pb types inside a physical mode.
	PhysicalPbType string
	IndexFactor    int
	IndexOffset    int
}

// IsPrimitive reports whether the pb type has no modes.
func (p *PbType) IsPrimitive() bool {
	return len(p.Modes) == 0
}

// Port looks up a port by name.
func (p *PbType) Port(name string) (PbPort, bool) {
	for _, port := range p.Ports {
		if port.Name == name {
			return port, true
		}
	}
	return PbPort{}, false
}

// Mode looks up a mode by name.
func (p *PbType) Mode(name string) (*Mode, bool) {
	for _, m := range p.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ResolvePhysicalMode returns the mode implemented in silicon: the declared
// physical mode, or the only mode when there is exactly one.
func (p *PbType) ResolvePhysicalMode() (*Mode, bool) {
	if p.PhysicalMode != "" {
		return p.Mode(p.PhysicalMode)
	}
	if len(p.Modes) == 1 {
		return p.Modes[0], true
	}
	return nil, false
}

// Path returns the hierarchical name, e.g. "clb[default].fle[n1_lut4].ble4".
func (p *PbType) Path() string {
	if p.Parent == nil {
		return p.Name
	}
	return p.Parent.Parent.Path() + "[" + p.Parent.Name + "]." + p.Name
}

// Mode is one operating mode of a pb type.
type Mode struct {
	Name          string
	Parent        *PbType
	Children      []*PbType
	Interconnects []*Interconnect
}

// Child looks up a child pb type by name.
func (m *Mode) Child(name string) (*PbType, bool) {
	for _, c := range m.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// InterconnectType classifies pb interconnects.
type InterconnectType uint8

const (
	InterconnectDirect InterconnectType = iota
	InterconnectComplete
	InterconnectMux
)

var interconnectNames = map[InterconnectType]string{
	InterconnectDirect:   "direct",
	InterconnectComplete: "complete",
	InterconnectMux:      "mux",
}

func (t InterconnectType) String() string {
	if name, ok := interconnectNames[t]; ok {
		return name
	}
	return fmt.Sprintf("InterconnectType(%d)", t)
}

func parseInterconnectType(s string) (InterconnectType, error) {
	for t, name := range interconnectNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown interconnect type %q", s)
}

// Interconnect connects ports inside a mode. Inputs and Outputs are port
// references of the form "pb.port" or "pb.port[i]", where pb is the mode's
// parent or one of its children.
type Interconnect struct {
	Name         string
	Type         InterconnectType
	Inputs       []string
	Outputs      []string
	CircuitModel string
	Parent       *Mode
}

// Key identifies the interconnect across the whole hierarchy.
func (ic *Interconnect) Key() string {
	return ic.Parent.Parent.Path() + "[" + ic.Parent.Name + "]/" + ic.Name
}

// PortRef is a parsed interconnect port reference.
type PortRef struct {
	Pb   string
	Port string
	Bit  int // -1 for the whole port
}

// ParsePortRef parses "pb.port" or "pb.port[i]".
func ParsePortRef(s string) (PortRef, error) {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return PortRef{}, fmt.Errorf("arch: malformed port reference %q", s)
	}
	ref := PortRef{Pb: s[:dot], Port: s[dot+1:], Bit: -1}
	if open := strings.IndexByte(ref.Port, '['); open >= 0 {
		if !strings.HasSuffix(ref.Port, "]") {
			return PortRef{}, fmt.Errorf("arch: malformed port reference %q", s)
		}
		var bit int
		if _, err := fmt.Sscanf(ref.Port[open+1:len(ref.Port)-1], "%d", &bit); err != nil || bit < 0 {
			return PortRef{}, fmt.Errorf("arch: malformed bit index in %q", s)
		}
		ref.Port = ref.Port[:open]
		ref.Bit = bit
	}
	return ref, nil
}

// FindPbType resolves a hierarchical path produced by PbType.Path against
// a list of top-level pb types.
func FindPbType(roots []*PbType, path string) (*PbType, error) {
	parts := strings.Split(path, ".")
	var (
		current  *PbType
		children = roots
	)
	for i, part := range parts {
		name, modeName := part, ""
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("arch: malformed pb type path %q", path)
			}
			name, modeName = part[:open], part[open+1:len(part)-1]
		}
		current = nil
		for _, c := range children {
			if c.Name == name {
				current = c
				break
			}
		}
		if current == nil {
			return nil, fmt.Errorf("arch: pb type %q not found in path %q", name, path)
		}
		if i == len(parts)-1 {
			if modeName != "" {
				return nil, fmt.Errorf("arch: path %q ends with a mode", path)
			}
			return current, nil
		}
		mode, ok := current.Mode(modeName)
		if !ok {
			return nil, fmt.Errorf("arch: pb type %q has no mode %q", current.Name, modeName)
		}
		children = mode.Children
	}
	return current, nil
}

// Walk visits p and every pb type below it, depth first, parents before
// children and modes in declaration order.
func Walk(p *PbType, visit func(*PbType)) {
	visit(p)
	for _, m := range p.Modes {
		for _, c := range m.Children {
			Walk(c, visit)
		}
	}
}
