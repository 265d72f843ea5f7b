package link

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is one stage of a link run. The ten link steps run in declaration
// order; StateDone and StateAborted are terminal.
type State uint8

const (
	StateAnnotatePbTypes State = iota
	StateAnnotatePbGraph
	StateAnnotateRoutingCircuitModels
	StateAnnotateRoutingNets
	StateCheckGraphSupported
	StateBuildDeviceSwitchBlockIndex
	StateBuildMultiplexerLibrary
	StateBuildTileDirectIndex
	StateAnnotatePlacement
	StateAnnotateSimulationSetting
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateAnnotatePbTypes:              "AnnotatePbTypes",
	StateAnnotatePbGraph:              "AnnotatePbGraph",
	StateAnnotateRoutingCircuitModels: "AnnotateRoutingCircuitModels",
	StateAnnotateRoutingNets:          "AnnotateRoutingNets",
	StateCheckGraphSupported:          "CheckGraphSupported",
	StateBuildDeviceSwitchBlockIndex:  "BuildDeviceSwitchBlockIndex",
	StateBuildMultiplexerLibrary:      "BuildMultiplexerLibrary",
	StateBuildTileDirectIndex:         "BuildTileDirectIndex",
	StateAnnotatePlacement:            "AnnotatePlacement",
	StateAnnotateSimulationSetting:    "AnnotateSimulationSetting",
	StateDone:                         "Done",
	StateAborted:                      "Aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// Outcome classifies a step result.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeWarning
	OutcomeAbort
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeWarning:
		return "warning"
	case OutcomeAbort:
		return "abort"
	}
	return fmt.Sprintf("Outcome(%d)", o)
}

// Result is what a step reports. Err is set only for OutcomeAbort.
type Result struct {
	Outcome  Outcome
	Warnings []string
	Err      error
}

func done(warnings []string) Result {
	if len(warnings) > 0 {
		return Result{Outcome: OutcomeWarning, Warnings: warnings}
	}
	return Result{Outcome: OutcomeSuccess}
}

func abort(err error, warnings ...string) Result {
	return Result{Outcome: OutcomeAbort, Warnings: warnings, Err: err}
}

// Step is one named stage of the link sequence. Run reads the inputs and
// fills its part of the context.
type Step struct {
	State State
	Run   func(in *Inputs, ctx *Context) Result
}

// Name returns the step name.
func (s Step) Name() string { return s.State.String() }

// ErrAborted matches every error returned by an aborted link.
var ErrAborted = errors.New("link: aborted")

// AbortError reports the step that stopped a link and why.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("link: aborted at %s: %v", e.State, e.Err)
}

// Unwrap returns the step error.
func (e *AbortError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAborted) hold for every AbortError.
func (e *AbortError) Is(target error) bool { return target == ErrAborted }
