// Package timing provides the critical-path delay the link pipeline needs
// to derive an operating clock frequency.
package timing

import (
	"github.com/pkg/errors"
)

// ErrNoTimingData is returned when no timing results are available.
var ErrNoTimingData = errors.New("timing: no timing data")

// Analyzer reports the critical-path delay of an implemented design.
type Analyzer interface {
	// CriticalPathDelay returns the delay in seconds.
	CriticalPathDelay() (float64, error)
}

// Fixed is an Analyzer backed by a delay reported by an external tool.
// A zero value has no data.
type Fixed float64

// CriticalPathDelay implements Analyzer.
func (f Fixed) CriticalPathDelay() (float64, error) {
	if f <= 0 {
		return 0, ErrNoTimingData
	}
	return float64(f), nil
}

// Arc is a timing arc between two timing points, delay in seconds.
type Arc struct {
	From  string
	To    string
	Delay float64
}

// StaticAnalyzer computes the critical path as the longest path through a
// directed acyclic graph of timing arcs.
type StaticAnalyzer struct {
	arcs []Arc
}

// NewStaticAnalyzer creates an analyzer over the given arcs.
func NewStaticAnalyzer(arcs []Arc) *StaticAnalyzer {
	return &StaticAnalyzer{arcs: arcs}
}

// Arcs returns the arcs the analyzer was built from.
func (s *StaticAnalyzer) Arcs() []Arc {
	return s.arcs
}

// CriticalPathDelay implements Analyzer.
func (s *StaticAnalyzer) CriticalPathDelay() (float64, error) {
	if len(s.arcs) == 0 {
		return 0, ErrNoTimingData
	}

	index := make(map[string]int)
	var names []string
	point := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(names)
		names = append(names, name)
		return len(names) - 1
	}

	type fanout struct {
		to    int
		delay float64
	}
	var (
		out      [][]fanout
		inDegree []int
	)
	for _, arc := range s.arcs {
		if arc.Delay < 0 {
			return 0, errors.Errorf("timing: arc %s -> %s has negative delay %g", arc.From, arc.To, arc.Delay)
		}
		from, to := point(arc.From), point(arc.To)
		for len(out) < len(names) {
			out = append(out, nil)
			inDegree = append(inDegree, 0)
		}
		out[from] = append(out[from], fanout{to: to, delay: arc.Delay})
		inDegree[to]++
	}

	// Kahn's algorithm, relaxing arrival times in topological order.
	arrival := make([]float64, len(names))
	queue := make([]int, 0, len(names))
	for i := range names {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	visited := 0
	critical := 0.0
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		visited++
		if arrival[p] > critical {
			critical = arrival[p]
		}
		for _, f := range out[p] {
			if t := arrival[p] + f.delay; t > arrival[f.to] {
				arrival[f.to] = t
			}
			inDegree[f.to]--
			if inDegree[f.to] == 0 {
				queue = append(queue, f.to)
			}
		}
	}
	if visited != len(names) {
		return 0, errors.New("timing: combinational loop in timing graph")
	}
	if critical <= 0 {
		return 0, ErrNoTimingData
	}
	return critical, nil
}
