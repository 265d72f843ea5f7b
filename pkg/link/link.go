// Package link runs the architecture-link sequence: it annotates the
// architecture and the implemented device, builds the switch-block index,
// the multiplexer library and the tile direct index, and settles the
// simulation clock.
package link

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/fabriclink/internal/logging"
	"github.com/OpenTraceLab/fabriclink/pkg/annotation"
	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/mux"
	"github.com/OpenTraceLab/fabriclink/pkg/pbgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgsb"
	"github.com/OpenTraceLab/fabriclink/pkg/tiledirect"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

// Inputs is the read-only state a link consumes.
type Inputs struct {
	Arch   *arch.Architecture
	Device *devdump.Device
	// Timing reports the critical-path delay. When nil, the timing arcs of
	// the device are analysed.
	Timing timing.Analyzer
}

func (in *Inputs) validate() error {
	switch {
	case in.Arch == nil:
		return errors.New("link: no architecture")
	case in.Device == nil:
		return errors.New("link: no device")
	case in.Device.Graph == nil || in.Device.Grid == nil:
		return errors.New("link: device has no routing graph or grid")
	}
	return nil
}

// Context holds everything a successful link produces.
type Context struct {
	PbTypes       *annotation.PbTypeAnnotation
	PbGraph       *pbgraph.Graph
	RoutingModels *annotation.RoutingModels
	RoutingNets   *annotation.RoutingAnnotation
	DeviceRRGSB   *rrgsb.DeviceRRGSB
	MuxLibrary    *mux.Library
	TileDirects   *tiledirect.Index
	Placement     *annotation.PlacementAnnotation

	// Simulation is the architecture's setting with the operating clock
	// resolved.
	Simulation arch.SimulationSetting
	// FrequencyDerived is set when the clock was computed from timing.
	FrequencyDerived  bool
	CriticalPathDelay float64

	// Warnings collects every step warning, prefixed with the step name.
	Warnings []string
}

// Linker runs the link steps in order.
type Linker struct {
	log   logrus.FieldLogger
	steps []Step
}

// NewLinker returns a linker logging to log.
func NewLinker(log logrus.FieldLogger) *Linker {
	if log == nil {
		log = logging.Discard()
	}
	return &Linker{log: log, steps: Steps()}
}

// Steps returns the link sequence.
func Steps() []Step {
	return []Step{
		{StateAnnotatePbTypes, annotatePbTypes},
		{StateAnnotatePbGraph, annotatePbGraph},
		{StateAnnotateRoutingCircuitModels, annotateRoutingCircuitModels},
		{StateAnnotateRoutingNets, annotateRoutingNets},
		{StateCheckGraphSupported, checkGraphSupported},
		{StateBuildDeviceSwitchBlockIndex, buildDeviceSwitchBlockIndex},
		{StateBuildMultiplexerLibrary, buildMultiplexerLibrary},
		{StateBuildTileDirectIndex, buildTileDirectIndex},
		{StateAnnotatePlacement, annotatePlacement},
		{StateAnnotateSimulationSetting, annotateSimulationSetting},
	}
}

// Link runs every step on a fresh context. The first aborting step ends
// the run with an *AbortError and no context is returned.
func (l *Linker) Link(in Inputs) (*Context, error) {
	if err := in.validate(); err != nil {
		return nil, &AbortError{State: StateAnnotatePbTypes, Err: err}
	}
	ctx := &Context{}
	total := logging.StartTimer(l.log, "link")
	for _, step := range l.steps {
		log := l.log.WithField("step", step.Name())
		timer := logging.StartTimer(log, step.Name())
		res := step.Run(&in, ctx)
		timer.Stop()

		for _, w := range res.Warnings {
			log.Warn(w)
			ctx.Warnings = append(ctx.Warnings, fmt.Sprintf("%s: %s", step.Name(), w))
		}
		if res.Outcome == OutcomeAbort {
			log.WithError(res.Err).Error("link aborted")
			return nil, &AbortError{State: step.State, Err: res.Err}
		}
	}
	total.Stop()
	l.log.WithFields(logrus.Fields{
		"warnings":        len(ctx.Warnings),
		"clock_frequency": ctx.Simulation.OperatingClockFrequency,
	}).Info("link done")
	return ctx, nil
}

func annotatePbTypes(in *Inputs, ctx *Context) Result {
	ann, warnings, err := annotation.AnnotatePbTypes(in.Arch)
	if err != nil {
		return abort(err, warnings...)
	}
	ctx.PbTypes = ann
	return done(warnings)
}

func annotatePbGraph(in *Inputs, ctx *Context) Result {
	g := pbgraph.Build(in.Arch.PbTypes)
	warnings, err := g.BindPhysical(in.Arch.PbTypes)
	if err != nil {
		return abort(err, warnings...)
	}
	ctx.PbGraph = g
	return done(warnings)
}

func annotateRoutingCircuitModels(in *Inputs, ctx *Context) Result {
	rm, warnings := annotation.AnnotateRoutingCircuitModels(in.Arch, in.Device.Graph)
	ctx.RoutingModels = rm
	return done(warnings)
}

func annotateRoutingNets(in *Inputs, ctx *Context) Result {
	d := in.Device
	ann, err := annotation.AnnotateRoutingNets(d.Graph, d.Clustering, d.Routing)
	if err != nil {
		return abort(err)
	}
	ctx.RoutingNets = ann
	return done(nil)
}

func checkGraphSupported(in *Inputs, ctx *Context) Result {
	if err := rrgraph.CheckSupported(in.Device.Graph); err != nil {
		return abort(err)
	}
	return done(nil)
}

func buildDeviceSwitchBlockIndex(in *Inputs, ctx *Context) Result {
	g := in.Device.Grid
	d, err := rrgsb.Build(in.Device.Graph, g.Width(), g.Height())
	if err != nil {
		return abort(err)
	}
	var warnings []string
	for _, c := range d.InvalidCoordinates() {
		for _, issue := range d.Issues(c) {
			warnings = append(warnings, fmt.Sprintf("GSB %s: %s", c, issue))
		}
	}
	ctx.DeviceRRGSB = d
	return done(warnings)
}

func buildMultiplexerLibrary(in *Inputs, ctx *Context) Result {
	lib, warnings, err := mux.BuildDeviceLibrary(mux.Sources{
		Graph:   in.Device.Graph,
		Device:  ctx.DeviceRRGSB,
		Routing: ctx.RoutingModels,
		PbGraph: ctx.PbGraph,
		PbTypes: ctx.PbTypes,
	})
	if err != nil {
		return abort(err, warnings...)
	}
	ctx.MuxLibrary = lib
	return done(warnings)
}

func buildTileDirectIndex(in *Inputs, ctx *Context) Result {
	ix, warnings := tiledirect.Build(in.Arch, in.Device.Grid, in.Device.Graph)
	ctx.TileDirects = ix
	return done(warnings)
}

func annotatePlacement(in *Inputs, ctx *Context) Result {
	d := in.Device
	ann, err := annotation.AnnotatePlacement(d.Grid, d.Clustering, d.Placement)
	if err != nil {
		return abort(err)
	}
	ctx.Placement = ann
	return done(nil)
}

// DeriveFrequency returns the operating clock for a critical-path delay
// and a slack margin: 1 / (delay * (1 + slack)).
func DeriveFrequency(delay, slack float64) float64 {
	return 1 / (delay * (1 + slack))
}

func annotateSimulationSetting(in *Inputs, ctx *Context) Result {
	sim := in.Arch.Sim
	if !sim.FrequencyFromTiming() {
		ctx.Simulation = sim
		return done(nil)
	}
	analyzer := in.Timing
	if analyzer == nil {
		analyzer = timing.NewStaticAnalyzer(in.Device.Timing)
	}
	delay, err := analyzer.CriticalPathDelay()
	if err != nil {
		return abort(errors.Wrap(err, "link: derive operating clock frequency"))
	}
	sim.OperatingClockFrequency = DeriveFrequency(delay, sim.OperatingClockFrequencySlack)
	ctx.Simulation = sim
	ctx.FrequencyDerived = true
	ctx.CriticalPathDelay = delay
	return done(nil)
}
