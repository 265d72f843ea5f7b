// Package config loads fabriclink settings from an optional YAML file and
// FABRICLINK_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FABRICLINK_REPORT_PATH.
const EnvPrefix = "FABRICLINK"

// Config holds the settings of a link run.
type Config struct {
	Verbose    bool             `mapstructure:"verbose"`
	Report     ReportConfig     `mapstructure:"report"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// ReportConfig selects where the link report goes.
type ReportConfig struct {
	Path   string `mapstructure:"path"`   // empty: no report
	Format string `mapstructure:"format"` // yaml or text
}

// SimulationConfig overrides the architecture's simulation settings.
type SimulationConfig struct {
	// ClockFrequency in Hz replaces the architecture's operating clock
	// when positive.
	ClockFrequency float64 `mapstructure:"clock_frequency"`
	// Slack replaces the architecture's frequency slack when not negative.
	Slack float64 `mapstructure:"slack"`
	// CriticalPathDelay in seconds is used instead of analysing the timing
	// arcs of the device file when positive.
	CriticalPathDelay float64 `mapstructure:"critical_path_delay"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Report:     ReportConfig{Format: "yaml"},
		Simulation: SimulationConfig{Slack: -1},
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Report.Format {
	case "yaml", "text":
	default:
		return errors.Errorf("config: unknown report format %q", c.Report.Format)
	}
	if c.Simulation.ClockFrequency < 0 {
		return errors.Errorf("config: negative clock frequency %g", c.Simulation.ClockFrequency)
	}
	if c.Simulation.CriticalPathDelay < 0 {
		return errors.Errorf("config: negative critical path delay %g", c.Simulation.CriticalPathDelay)
	}
	return nil
}

// DefaultPath returns ~/.config/fabriclink/config.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "config: locate home directory")
	}
	return filepath.Join(home, ".config", "fabriclink", "config.yaml"), nil
}

// Load reads the settings. An explicit path must exist; without one the
// default path is used when present. Environment variables override the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("verbose", def.Verbose)
	v.SetDefault("report.path", def.Report.Path)
	v.SetDefault("report.format", def.Report.Format)
	v.SetDefault("simulation.clock_frequency", def.Simulation.ClockFrequency)
	v.SetDefault("simulation.slack", def.Simulation.Slack)
	v.SetDefault("simulation.critical_path_delay", def.Simulation.CriticalPathDelay)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
