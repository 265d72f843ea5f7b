package link

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/fabricgen"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

func inputs(t *testing.T, p fabricgen.Params) Inputs {
	t.Helper()
	a, err := arch.LoadString(fabricgen.ArchText)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	dev, err := fabricgen.Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return Inputs{Arch: a, Device: dev}
}

func TestStepsOrder(t *testing.T) {
	want := []string{
		"AnnotatePbTypes",
		"AnnotatePbGraph",
		"AnnotateRoutingCircuitModels",
		"AnnotateRoutingNets",
		"CheckGraphSupported",
		"BuildDeviceSwitchBlockIndex",
		"BuildMultiplexerLibrary",
		"BuildTileDirectIndex",
		"AnnotatePlacement",
		"AnnotateSimulationSetting",
	}
	steps := Steps()
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(steps), len(want))
	}
	for i, s := range steps {
		if s.Name() != want[i] {
			t.Errorf("step %d = %s, want %s", i, s.Name(), want[i])
		}
		if s.State != State(i) {
			t.Errorf("step %s has state %d, want %d", s.Name(), s.State, i)
		}
	}
	if StateDone.String() != "Done" || State(99).String() != "State(99)" {
		t.Errorf("state names: %s, %s", StateDone, State(99))
	}
}

func TestLinkDefaultDevice(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	ctx, err := NewLinker(nil).Link(in)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	switch {
	case ctx.PbTypes == nil, ctx.PbGraph == nil, ctx.RoutingModels == nil, ctx.RoutingNets == nil:
		t.Fatalf("annotations missing: %+v", ctx)
	case ctx.DeviceRRGSB == nil, ctx.MuxLibrary == nil, ctx.TileDirects == nil, ctx.Placement == nil:
		t.Fatalf("indexes missing: %+v", ctx)
	}
	if ctx.DeviceRRGSB.NumSwitchBlocks() == 0 || ctx.MuxLibrary.Len() == 0 {
		t.Errorf("empty indexes: %d switch blocks, %d muxes", ctx.DeviceRRGSB.NumSwitchBlocks(), ctx.MuxLibrary.Len())
	}
	if ctx.TileDirects.Len() != 6 {
		t.Errorf("got %d tile directs, want 6", ctx.TileDirects.Len())
	}
	if ctx.RoutingNets.NumUsedNodes() == 0 {
		t.Errorf("routed design left no used nodes")
	}
	if len(ctx.Placement.Placed()) == 0 {
		t.Errorf("no placed blocks")
	}

	if !ctx.FrequencyDerived || math.Abs(ctx.CriticalPathDelay-4e-9) > 1e-18 {
		t.Fatalf("derived=%v delay=%g", ctx.FrequencyDerived, ctx.CriticalPathDelay)
	}
	want := 1 / (4e-9 * 1.2)
	if got := ctx.Simulation.OperatingClockFrequency; math.Abs(got-want) > 1 {
		t.Errorf("frequency = %g, want %g", got, want)
	}
	if in.Arch.Sim.OperatingClockFrequency != 0 {
		t.Errorf("link modified the architecture's simulation setting")
	}
}

func TestLinkKeepsConfiguredFrequency(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	in.Arch.Sim.OperatingClockFrequency = 150e6
	in.Timing = timing.Fixed(0)

	ctx, err := NewLinker(nil).Link(in)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if ctx.FrequencyDerived || ctx.Simulation.OperatingClockFrequency != 150e6 {
		t.Errorf("frequency = %g (derived %v), want 150e6 untouched",
			ctx.Simulation.OperatingClockFrequency, ctx.FrequencyDerived)
	}
}

func TestLinkUsesTimingAnalyzer(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	in.Timing = timing.Fixed(2e-9)
	ctx, err := NewLinker(nil).Link(in)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if ctx.CriticalPathDelay != 2e-9 {
		t.Errorf("delay = %g, want the analyzer's 2e-9", ctx.CriticalPathDelay)
	}
}

func TestDeriveFrequency(t *testing.T) {
	for _, tc := range []struct {
		delay, slack, want float64
	}{
		{1e-9, 0, 1e9},
		{4e-9, 0.2, 1 / 4.8e-9},
		{10e-9, 1, 50e6},
	} {
		got := DeriveFrequency(tc.delay, tc.slack)
		if math.Abs(got-tc.want) > tc.want*1e-12 {
			t.Errorf("DeriveFrequency(%g, %g) = %g, want %g", tc.delay, tc.slack, got, tc.want)
		}
	}
}

func TestLinkAbortsOnBidirectionalGraph(t *testing.T) {
	p := fabricgen.DefaultParams()
	p.Bidirectional = true
	in := inputs(t, p)

	log, hook := test.NewNullLogger()
	ctx, err := NewLinker(log).Link(in)
	if ctx != nil {
		t.Errorf("aborted link returned a context")
	}
	if !errors.Is(err, ErrAborted) || !errors.Is(err, rrgraph.ErrBidirectional) {
		t.Fatalf("err = %v, want an abort caused by bi-directional routing", err)
	}
	var abortErr *AbortError
	if !errors.As(err, &abortErr) || abortErr.State != StateCheckGraphSupported {
		t.Errorf("aborted at %v, want CheckGraphSupported", err)
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.ErrorLevel || last.Data["step"] != "CheckGraphSupported" {
		t.Errorf("last log entry = %+v", last)
	}
}

func TestLinkAbortsWithoutTiming(t *testing.T) {
	p := fabricgen.DefaultParams()
	p.WithDesign = false
	in := inputs(t, p)

	_, err := NewLinker(nil).Link(in)
	if !errors.Is(err, ErrAborted) || !errors.Is(err, timing.ErrNoTimingData) {
		t.Fatalf("err = %v, want an abort for missing timing data", err)
	}
	if !strings.Contains(err.Error(), "AnnotateSimulationSetting") {
		t.Errorf("error %q does not name the step", err)
	}
}

func TestLinkRejectsIncompleteInputs(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	for _, bad := range []Inputs{
		{Device: in.Device},
		{Arch: in.Arch},
	} {
		if _, err := NewLinker(nil).Link(bad); !errors.Is(err, ErrAborted) {
			t.Errorf("Link(%+v) = %v, want abort", bad, err)
		}
	}
}

func TestLinkWarningsAreLogged(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	delete(in.Arch.Switches, fabricgen.SwitchRouting)

	log, hook := test.NewNullLogger()
	ctx, err := NewLinker(log).Link(in)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	var found bool
	for _, w := range ctx.Warnings {
		if strings.HasPrefix(w, "AnnotateRoutingCircuitModels: ") && strings.Contains(w, fabricgen.SwitchRouting) {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings %q do not mention the unbound switch", ctx.Warnings)
	}
	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["step"] == "AnnotateRoutingCircuitModels" {
			logged = true
		}
	}
	if !logged {
		t.Errorf("warning was not logged with its step")
	}
}

func TestLinkIsRepeatable(t *testing.T) {
	in := inputs(t, fabricgen.DefaultParams())
	l := NewLinker(nil)
	a, err := l.Link(in)
	if err != nil {
		t.Fatalf("first Link: %v", err)
	}
	b, err := l.Link(in)
	if err != nil {
		t.Fatalf("second Link: %v", err)
	}
	if a.DeviceRRGSB.NumSwitchBlocks() != b.DeviceRRGSB.NumSwitchBlocks() ||
		a.MuxLibrary.Len() != b.MuxLibrary.Len() ||
		a.Simulation != b.Simulation {
		t.Errorf("links differ: %d/%d switch blocks, %d/%d muxes",
			a.DeviceRRGSB.NumSwitchBlocks(), b.DeviceRRGSB.NumSwitchBlocks(),
			a.MuxLibrary.Len(), b.MuxLibrary.Len())
	}
}

func TestWorkspacePublishesOnSuccess(t *testing.T) {
	w := NewWorkspace(NewLinker(nil))
	if w.Context() != nil {
		t.Fatalf("fresh workspace has a context")
	}
	good := inputs(t, fabricgen.DefaultParams())
	ctx, err := w.Link(good)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if w.Context() != ctx || w.Links() != 1 {
		t.Fatalf("context not published")
	}

	p := fabricgen.DefaultParams()
	p.Bidirectional = true
	if _, err := w.Link(inputs(t, p)); err == nil {
		t.Fatalf("bi-directional link succeeded")
	}
	if w.Context() != ctx || w.Links() != 1 {
		t.Errorf("failed link replaced the published context")
	}
}

func TestWorkspaceConcurrentLinks(t *testing.T) {
	w := NewWorkspace(NewLinker(nil))
	in := inputs(t, fabricgen.DefaultParams())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Link(in); err != nil {
				t.Errorf("Link: %v", err)
			}
			_ = w.Context()
		}()
	}
	wg.Wait()
	if w.Links() != 4 || w.Context() == nil {
		t.Errorf("links = %d", w.Links())
	}
}
