package arch

import (
	"fmt"
	"sort"
)

// CircuitModelType is the kind of physical circuit a model describes.
type CircuitModelType uint8

const (
	ModelMux CircuitModelType = iota
	ModelWire
	ModelChanWire
	ModelLUT
	ModelFF
	ModelIOPad
	ModelHardLogic
	ModelInvBuf
	ModelPassGate
	ModelSRAM
)

var modelTypeNames = map[CircuitModelType]string{
	ModelMux:       "mux",
	ModelWire:      "wire",
	ModelChanWire:  "chan_wire",
	ModelLUT:       "lut",
	ModelFF:        "ff",
	ModelIOPad:     "iopad",
	ModelHardLogic: "hard_logic",
	ModelInvBuf:    "inv_buf",
	ModelPassGate:  "pass_gate",
	ModelSRAM:      "sram",
}

func (t CircuitModelType) String() string {
	if name, ok := modelTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CircuitModelType(%d)", t)
}

func parseModelType(s string) (CircuitModelType, error) {
	for t, name := range modelTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown circuit model type %q", s)
}

// MuxStructure selects how a multiplexer model is implemented.
type MuxStructure uint8

const (
	StructureTree MuxStructure = iota
	StructureOneLevel
	StructureMultiLevel
)

var structureNames = map[MuxStructure]string{
	StructureTree:       "tree",
	StructureOneLevel:   "one_level",
	StructureMultiLevel: "multi_level",
}

func (s MuxStructure) String() string {
	if name, ok := structureNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MuxStructure(%d)", s)
}

func parseStructure(s string) (MuxStructure, error) {
	for st, name := range structureNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown mux structure %q", s)
}

// CircuitModel describes one reusable circuit implementation.
type CircuitModel struct {
	Name          string
	Type          CircuitModelType
	IsDefault     bool
	Structure     MuxStructure // mux models only
	NumLevels     int          // multi-level muxes only
	AddConstInput bool         // mux models get one extra constant data input
	LocalEncoder  bool         // one-level muxes use binary-encoded select bits
}

// CircuitLibrary is the set of circuit models declared by an architecture.
type CircuitLibrary struct {
	models []*CircuitModel
	byName map[string]*CircuitModel
}

// NewCircuitLibrary creates an empty library.
func NewCircuitLibrary() *CircuitLibrary {
	return &CircuitLibrary{byName: make(map[string]*CircuitModel)}
}

// Add registers a model. Names must be unique and at most one model of each
// type may be the default.
func (l *CircuitLibrary) Add(m *CircuitModel) error {
	if _, ok := l.byName[m.Name]; ok {
		return fmt.Errorf("arch: duplicate circuit model %q", m.Name)
	}
	if m.IsDefault {
		for _, other := range l.models {
			if other.Type == m.Type && other.IsDefault {
				return fmt.Errorf("arch: circuit models %q and %q are both default %s models",
					other.Name, m.Name, m.Type)
			}
		}
	}
	l.models = append(l.models, m)
	l.byName[m.Name] = m
	return nil
}

// CircuitModel looks up a model by name.
func (l *CircuitLibrary) CircuitModel(name string) (*CircuitModel, bool) {
	m, ok := l.byName[name]
	return m, ok
}

// Default returns the default model of the given type. A type with a single
// model and no explicit default uses that model.
func (l *CircuitLibrary) Default(t CircuitModelType) (*CircuitModel, bool) {
	var only *CircuitModel
	count := 0
	for _, m := range l.models {
		if m.Type != t {
			continue
		}
		if m.IsDefault {
			return m, true
		}
		only = m
		count++
	}
	if count == 1 {
		return only, true
	}
	return nil, false
}

// Models returns all models sorted by name.
func (l *CircuitLibrary) Models() []*CircuitModel {
	out := make([]*CircuitModel, len(l.models))
	copy(out, l.models)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
