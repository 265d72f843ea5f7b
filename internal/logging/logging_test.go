package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("non-verbose output = %q", buf.String())
	}

	buf.Reset()
	New(&buf, true).Debug("detail")
	if !strings.Contains(buf.String(), "detail") {
		t.Errorf("verbose logger dropped debug message: %q", buf.String())
	}
}

func TestTimer(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	timer := StartTimer(log, "build index")
	if d := timer.Stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "build index..." || entries[1].Message != "build index done" {
		t.Errorf("messages = %q, %q", entries[0].Message, entries[1].Message)
	}
	if _, ok := entries[1].Data["elapsed"]; !ok {
		t.Errorf("missing elapsed field")
	}
}
