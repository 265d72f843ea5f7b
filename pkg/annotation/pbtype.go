// Package annotation binds architecture metadata to the device and design
// state: pb types and routing resources to circuit models, routing nodes
// to nets, and grid locations to placed blocks.
package annotation

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// PbTypeAnnotation records the physical view of the pb type hierarchy.
type PbTypeAnnotation struct {
	physicalMode   map[*arch.PbType]*arch.Mode
	physicalPbType map[*arch.PbType]*arch.PbType
	primitiveModel map[*arch.PbType]*arch.CircuitModel
	interconnect   map[*arch.Interconnect]*arch.CircuitModel
}

// AnnotatePbTypes resolves physical modes, physical pb types and circuit
// models of every pb type and interconnect. Interconnects without a model
// use the default mux model (mux, complete) or wire model (direct).
// Missing bindings are warnings; references to undeclared models are errors.
func AnnotatePbTypes(a *arch.Architecture) (*PbTypeAnnotation, []string, error) {
	ann := &PbTypeAnnotation{
		physicalMode:   make(map[*arch.PbType]*arch.Mode),
		physicalPbType: make(map[*arch.PbType]*arch.PbType),
		primitiveModel: make(map[*arch.PbType]*arch.CircuitModel),
		interconnect:   make(map[*arch.Interconnect]*arch.CircuitModel),
	}
	var (
		warnings []string
		err      error
	)
	for _, root := range a.PbTypes {
		arch.Walk(root, func(p *arch.PbType) {
			if err != nil {
				return
			}
			if p.IsPrimitive() {
				if p.CircuitModel == "" {
					warnings = append(warnings, fmt.Sprintf("annotation: primitive %s has no circuit model", p.Path()))
				} else if m, ok := a.Circuits.CircuitModel(p.CircuitModel); ok {
					ann.primitiveModel[p] = m
				} else {
					err = errors.Errorf("annotation: primitive %s references unknown circuit model %q", p.Path(), p.CircuitModel)
					return
				}
			} else if mode, ok := p.ResolvePhysicalMode(); ok {
				ann.physicalMode[p] = mode
			} else {
				warnings = append(warnings, fmt.Sprintf("annotation: %s has %d modes and no physical_mode", p.Path(), len(p.Modes)))
			}

			if p.PhysicalPbType != "" {
				phys, ferr := arch.FindPbType(a.PbTypes, p.PhysicalPbType)
				if ferr != nil {
					err = errors.Wrapf(ferr, "annotation: %s", p.Path())
					return
				}
				ann.physicalPbType[p] = phys
			}

			for _, mode := range p.Modes {
				for _, ic := range mode.Interconnects {
					m, ierr := interconnectModel(a.Circuits, ic)
					if ierr != nil {
						err = ierr
						return
					}
					if m == nil {
						warnings = append(warnings, fmt.Sprintf("annotation: interconnect %s has no circuit model", ic.Key()))
						continue
					}
					ann.interconnect[ic] = m
				}
			}
		})
		if err != nil {
			return nil, warnings, err
		}
	}
	return ann, warnings, nil
}

func interconnectModel(lib *arch.CircuitLibrary, ic *arch.Interconnect) (*arch.CircuitModel, error) {
	if ic.CircuitModel != "" {
		m, ok := lib.CircuitModel(ic.CircuitModel)
		if !ok {
			return nil, errors.Errorf("annotation: interconnect %s references unknown circuit model %q", ic.Key(), ic.CircuitModel)
		}
		return m, nil
	}
	want := arch.ModelMux
	if ic.Type == arch.InterconnectDirect {
		want = arch.ModelWire
	}
	m, _ := lib.Default(want)
	return m, nil
}

// PhysicalMode returns the physical mode of a non-primitive pb type.
func (a *PbTypeAnnotation) PhysicalMode(p *arch.PbType) (*arch.Mode, bool) {
	m, ok := a.physicalMode[p]
	return m, ok
}

// PhysicalPbType returns the physical pb type an operating pb type maps to.
func (a *PbTypeAnnotation) PhysicalPbType(p *arch.PbType) (*arch.PbType, bool) {
	phys, ok := a.physicalPbType[p]
	return phys, ok
}

// PrimitiveModel returns the circuit model of a primitive pb type.
func (a *PbTypeAnnotation) PrimitiveModel(p *arch.PbType) (*arch.CircuitModel, bool) {
	m, ok := a.primitiveModel[p]
	return m, ok
}

// InterconnectModel returns the circuit model implementing an interconnect.
func (a *PbTypeAnnotation) InterconnectModel(ic *arch.Interconnect) (*arch.CircuitModel, bool) {
	m, ok := a.interconnect[ic]
	return m, ok
}

// RoutingModels binds routing switches and segments to circuit models.
type RoutingModels struct {
	switches map[rrgraph.SwitchID]*arch.CircuitModel
	segments map[rrgraph.SegmentID]*arch.CircuitModel
}

// AnnotateRoutingCircuitModels binds every switch and segment of the graph
// to the circuit model the architecture names for it. Switches without a
// binding fall back to the default mux model; anything left unbound is a
// warning.
func AnnotateRoutingCircuitModels(a *arch.Architecture, g rrgraph.View) (*RoutingModels, []string) {
	rm := &RoutingModels{
		switches: make(map[rrgraph.SwitchID]*arch.CircuitModel),
		segments: make(map[rrgraph.SegmentID]*arch.CircuitModel),
	}
	var warnings []string
	defaultMux, hasDefault := a.Circuits.Default(arch.ModelMux)
	for _, sw := range g.Switches() {
		if name, ok := a.Switches[sw.Name]; ok {
			if m, ok := a.Circuits.CircuitModel(name); ok {
				rm.switches[sw.ID] = m
				continue
			}
		}
		if hasDefault {
			rm.switches[sw.ID] = defaultMux
			warnings = append(warnings, fmt.Sprintf("annotation: switch %q has no circuit model, using default %q", sw.Name, defaultMux.Name))
			continue
		}
		warnings = append(warnings, fmt.Sprintf("annotation: switch %q has no circuit model", sw.Name))
	}
	for _, seg := range g.Segments() {
		if name, ok := a.Segments[seg.Name]; ok {
			if m, ok := a.Circuits.CircuitModel(name); ok {
				rm.segments[seg.ID] = m
				continue
			}
		}
		warnings = append(warnings, fmt.Sprintf("annotation: segment %q has no circuit model", seg.Name))
	}
	return rm, warnings
}

// Switch returns the circuit model bound to a switch.
func (r *RoutingModels) Switch(id rrgraph.SwitchID) (*arch.CircuitModel, bool) {
	m, ok := r.switches[id]
	return m, ok
}

// Segment returns the circuit model bound to a segment.
func (r *RoutingModels) Segment(id rrgraph.SegmentID) (*arch.CircuitModel, bool) {
	m, ok := r.segments[id]
	return m, ok
}
