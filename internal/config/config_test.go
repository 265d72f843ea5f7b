package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Report.Format != "yaml" || c.Simulation.Slack >= 0 {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "fabriclink.yaml")
	data := []byte("verbose: true\nreport:\n  path: out.yaml\nsimulation:\n  slack: 0.1\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FABRICLINK_SIMULATION_CLOCK_FREQUENCY", "2e8")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Verbose || c.Report.Path != "out.yaml" || c.Report.Format != "yaml" {
		t.Errorf("file settings not applied: %+v", c)
	}
	if c.Simulation.Slack != 0.1 {
		t.Errorf("slack = %g", c.Simulation.Slack)
	}
	if c.Simulation.ClockFrequency != 2e8 {
		t.Errorf("clock frequency = %g, want the environment override", c.Simulation.ClockFrequency)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Simulation.Slack != -1 || c.Report.Format != "yaml" {
		t.Errorf("got %+v, want defaults", c)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("an explicit missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Report.Format = "xml" },
		func(c *Config) { c.Simulation.ClockFrequency = -1 },
		func(c *Config) { c.Simulation.CriticalPathDelay = -1e-9 },
	} {
		c := Default()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("Validate accepted %+v", c)
		}
	}
}
