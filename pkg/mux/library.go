// Package mux enumerates the multiplexers a device needs and folds them
// into a library of shared implementations, one per (size, circuit model)
// signature.
package mux

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// InstanceKind tells routing multiplexers from pb-graph multiplexers.
type InstanceKind uint8

const (
	InstanceRouting InstanceKind = iota
	InstancePb
)

func (k InstanceKind) String() string {
	switch k {
	case InstanceRouting:
		return "routing"
	case InstancePb:
		return "pb"
	}
	return fmt.Sprintf("InstanceKind(%d)", k)
}

// InstanceKey identifies one multiplexer instance: a routing node, or a
// pb-graph output pin driven by an interconnect.
type InstanceKey struct {
	Kind InstanceKind
	Node rrgraph.NodeID // InstanceRouting
	Pin  string         // InstancePb
}

// RoutingInstance returns the key of the multiplexer driving a routing node.
func RoutingInstance(id rrgraph.NodeID) InstanceKey {
	return InstanceKey{Kind: InstanceRouting, Node: id}
}

// PbInstance returns the key of a pb-graph multiplexer.
func PbInstance(pin string) InstanceKey {
	return InstanceKey{Kind: InstancePb, Node: rrgraph.InvalidNode, Pin: pin}
}

func (k InstanceKey) String() string {
	if k.Kind == InstanceRouting {
		return fmt.Sprintf("rr:%d", k.Node)
	}
	return "pb:" + k.Pin
}

// Input is one data input of a multiplexer: a routing node or a pb pin.
type Input struct {
	Node rrgraph.NodeID
	Pin  string
}

// Shape is one multiplexer the device needs. Inputs are ordered the way
// the routing annotation is queried when configuring it.
type Shape struct {
	Instance     InstanceKey
	Inputs       []Input
	CircuitModel *arch.CircuitModel
}

// Size returns the fan-in.
func (s Shape) Size() int { return len(s.Inputs) }

// Signature returns the reuse key of the shape.
func (s Shape) Signature() Signature {
	name := ""
	if s.CircuitModel != nil {
		name = s.CircuitModel.Name
	}
	return Signature{Size: s.Size(), CircuitModel: name}
}

// Signature decides implementation reuse: which nets a multiplexer carries
// does not matter, only its fan-in and circuit model.
type Signature struct {
	Size         int
	CircuitModel string
}

func (s Signature) String() string {
	return fmt.Sprintf("%s_size%d", s.CircuitModel, s.Size)
}

// ID identifies a shared multiplexer implementation.
type ID int

// ConfigBit is one configuration bit of an implementation. Level 0 is the
// level nearest the data inputs.
type ConfigBit struct {
	Level int
	Index int
}

// Implementation describes one shared multiplexer circuit.
type Implementation struct {
	ID        ID
	Signature Signature
	Structure arch.MuxStructure
	// DataSize is the number of data inputs, including the constant input
	// when the model adds one.
	DataSize   int
	Levels     int
	ConfigBits []ConfigBit
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// levelWidth returns the smallest b >= 2 with b^levels >= n.
func levelWidth(n, levels int) int {
	for b := 2; ; b++ {
		p := 1
		for i := 0; i < levels && p < n; i++ {
			p *= b
		}
		if p >= n {
			return b
		}
	}
}

func newImplementation(id ID, sig Signature, m *arch.CircuitModel) *Implementation {
	impl := &Implementation{ID: id, Signature: sig, Structure: m.Structure, DataSize: sig.Size}
	if m.AddConstInput {
		impl.DataSize++
	}
	n := impl.DataSize
	switch m.Structure {
	case arch.StructureOneLevel:
		impl.Levels = 1
		width := n
		if m.LocalEncoder {
			width = ceilLog2(n)
		}
		for i := 0; i < width; i++ {
			impl.ConfigBits = append(impl.ConfigBits, ConfigBit{Level: 0, Index: i})
		}
	case arch.StructureMultiLevel:
		impl.Levels = m.NumLevels
		b := levelWidth(n, m.NumLevels)
		for l := 0; l < impl.Levels; l++ {
			for i := 0; i < b; i++ {
				impl.ConfigBits = append(impl.ConfigBits, ConfigBit{Level: l, Index: i})
			}
		}
	default:
		impl.Levels = ceilLog2(n)
		for l := 0; l < impl.Levels; l++ {
			impl.ConfigBits = append(impl.ConfigBits, ConfigBit{Level: l, Index: 0})
		}
	}
	return impl
}

// Library holds one implementation per distinct signature and the
// implementation assigned to every inserted instance.
type Library struct {
	impls     []*Implementation
	bySig     map[Signature]ID
	instances map[InstanceKey]ID
	shapes    map[InstanceKey]Shape
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		bySig:     make(map[Signature]ID),
		instances: make(map[InstanceKey]ID),
		shapes:    make(map[InstanceKey]Shape),
	}
}

// Insert assigns a shape to the implementation of its signature, creating
// the implementation on first use. Re-inserting an instance with the same
// signature returns the same id.
func (l *Library) Insert(s Shape) (ID, error) {
	if s.Size() < 2 {
		return 0, errors.Errorf("mux: %s has fan-in %d, no multiplexer needed", s.Instance, s.Size())
	}
	if s.CircuitModel == nil {
		return 0, errors.Errorf("mux: %s has no circuit model", s.Instance)
	}
	if s.CircuitModel.Type != arch.ModelMux {
		return 0, errors.Errorf("mux: %s uses %s model %q", s.Instance, s.CircuitModel.Type, s.CircuitModel.Name)
	}
	sig := s.Signature()
	if id, ok := l.instances[s.Instance]; ok {
		if l.impls[id].Signature != sig {
			return 0, errors.Errorf("mux: %s inserted as %s and %s", s.Instance, l.impls[id].Signature, sig)
		}
		return id, nil
	}
	id, ok := l.bySig[sig]
	if !ok {
		id = ID(len(l.impls))
		l.impls = append(l.impls, newImplementation(id, sig, s.CircuitModel))
		l.bySig[sig] = id
	}
	l.instances[s.Instance] = id
	l.shapes[s.Instance] = s
	return id, nil
}

// Lookup returns the implementation assigned to an inserted instance.
func (l *Library) Lookup(k InstanceKey) (ID, *Implementation, bool) {
	id, ok := l.instances[k]
	if !ok {
		return 0, nil, false
	}
	return id, l.impls[id], true
}

// Shape returns the inserted shape of an instance.
func (l *Library) Shape(k InstanceKey) (Shape, bool) {
	s, ok := l.shapes[k]
	return s, ok
}

// Implementation returns an implementation by id.
func (l *Library) Implementation(id ID) *Implementation {
	return l.impls[id]
}

// Implementations returns all implementations in id order.
func (l *Library) Implementations() []*Implementation {
	out := make([]*Implementation, len(l.impls))
	copy(out, l.impls)
	return out
}

// Len returns the number of implementations.
func (l *Library) Len() int { return len(l.impls) }

// NumInstances returns the number of inserted instances.
func (l *Library) NumInstances() int { return len(l.instances) }

// Instances returns the keys of all instances of an implementation, routing
// instances first, each kind in key order.
func (l *Library) Instances(id ID) []InstanceKey {
	var out []InstanceKey
	for k, iid := range l.instances {
		if iid == id {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Pin < b.Pin
	})
	return out
}
