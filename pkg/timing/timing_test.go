package timing

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestStaticAnalyzerLongestPath(t *testing.T) {
	a := NewStaticAnalyzer([]Arc{
		{From: "in", To: "lut1", Delay: 1e-9},
		{From: "lut1", To: "ff", Delay: 2e-9},
		{From: "in", To: "lut2", Delay: 0.5e-9},
		{From: "lut2", To: "lut3", Delay: 1e-9},
		{From: "lut3", To: "ff", Delay: 2e-9},
	})
	got, err := a.CriticalPathDelay()
	if err != nil {
		t.Fatalf("CriticalPathDelay: %v", err)
	}
	if want := 3.5e-9; math.Abs(got-want) > 1e-18 {
		t.Errorf("critical path = %g, want %g", got, want)
	}
}

func TestStaticAnalyzerNoData(t *testing.T) {
	_, err := NewStaticAnalyzer(nil).CriticalPathDelay()
	if !errors.Is(err, ErrNoTimingData) {
		t.Errorf("expected ErrNoTimingData, got %v", err)
	}
	_, err = NewStaticAnalyzer([]Arc{{From: "a", To: "b"}}).CriticalPathDelay()
	if !errors.Is(err, ErrNoTimingData) {
		t.Errorf("zero-delay graph: expected ErrNoTimingData, got %v", err)
	}
}

func TestStaticAnalyzerLoop(t *testing.T) {
	a := NewStaticAnalyzer([]Arc{
		{From: "a", To: "b", Delay: 1},
		{From: "b", To: "a", Delay: 1},
	})
	if _, err := a.CriticalPathDelay(); err == nil {
		t.Fatal("expected loop error")
	}
}

func TestFixed(t *testing.T) {
	if d, err := Fixed(4e-9).CriticalPathDelay(); err != nil || d != 4e-9 {
		t.Errorf("Fixed(4ns) = %g, %v", d, err)
	}
	if _, err := Fixed(0).CriticalPathDelay(); !errors.Is(err, ErrNoTimingData) {
		t.Errorf("Fixed(0): expected ErrNoTimingData, got %v", err)
	}
}
