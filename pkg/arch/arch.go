package arch

import "sort"

// DirectRule declares a point-to-point link between tile ports that
// bypasses the general routing fabric, such as a carry chain.
type DirectRule struct {
	Name         string
	FromTile     string
	FromPort     string
	ToTile       string
	ToPort       string
	XOffset      int
	YOffset      int
	CircuitModel string
}

// SimulationSetting holds the simulation defaults of an architecture.
// A zero operating clock frequency means "derive it from timing results".
type SimulationSetting struct {
	OperatingClockFrequency      float64 // Hz
	OperatingClockFrequencySlack float64 // fraction, e.g. 0.2 for 20%
	NumClockCycles               int     // 0 means automatic
	ProgrammingClockFrequency    float64 // Hz
}

// FrequencyFromTiming reports whether the operating clock frequency must be
// derived from timing analysis.
func (s SimulationSetting) FrequencyFromTiming() bool {
	return s.OperatingClockFrequency == 0
}

// Architecture is everything the link pipeline needs from an architecture
// description.
type Architecture struct {
	Circuits *CircuitLibrary
	// Switches binds routing switch names to circuit model names.
	Switches map[string]string
	// Segments binds wire segment names to circuit model names.
	Segments map[string]string
	PbTypes  []*PbType
	Directs  []DirectRule
	Sim      SimulationSetting
}

// New returns an empty architecture.
func New() *Architecture {
	return &Architecture{
		Circuits: NewCircuitLibrary(),
		Switches: make(map[string]string),
		Segments: make(map[string]string),
	}
}

// PbType looks up a top-level pb type by name.
func (a *Architecture) PbType(name string) (*PbType, bool) {
	for _, p := range a.PbTypes {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SwitchNames returns the names of all bound routing switches, sorted.
func (a *Architecture) SwitchNames() []string {
	out := make([]string, 0, len(a.Switches))
	for name := range a.Switches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
