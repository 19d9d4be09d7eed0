// Package config loads and validates faultd's own configuration: binary paths, default
// timings and pattern defaults, logging knobs, and safety limits. Fault declarations
// themselves are out of scope — this package only configures the engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Binaries  BinariesConfig  `yaml:"binaries"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Execution ExecutionConfig `yaml:"execution"`
	Safety    SafetyConfig    `yaml:"safety"`
}

// FrameworkConfig contains general engine settings.
type FrameworkConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// BinariesConfig names the privileged binaries the engine relies on. Validate requires Nsenter
// and TC to be non-empty; the synthesizer and executor emit the bare binary names and do not
// read these fields.
type BinariesConfig struct {
	Nsenter  string `yaml:"nsenter"`
	TC       string `yaml:"tc"`
	Ifconfig string `yaml:"ifconfig"`
	StressNG string `yaml:"stress_ng"`
	Tcset    string `yaml:"tcset"`
	Cgget    string `yaml:"cgget"`
}

// DefaultsConfig records the fallback values the synthesizer and scheduler apply when a
// descriptor omits fault_args/pattern_args entries. Those packages use their own built-in
// constants with the same values; of these fields only CommandWarnAfter is read (by
// cmd/faultctl, as the executor's warning threshold).
type DefaultsConfig struct {
	BottleneckBurst   string        `yaml:"bottleneck_burst"`
	BottleneckLimit   string        `yaml:"bottleneck_limit"`
	BurstDuration     time.Duration `yaml:"burst_duration"`
	BurstPeriod       time.Duration `yaml:"burst_period"`
	DegradationStep   int           `yaml:"degradation_step"`
	DegradationLength time.Duration `yaml:"degradation_length"`
	DegradationStart  int           `yaml:"degradation_start"`
	DegradationEnd    int           `yaml:"degradation_end"`
	RedirectMode      string        `yaml:"redirect_mode"`
	CommandWarnAfter  time.Duration `yaml:"command_warn_after"`
}

// EmergencyConfig contains emergency stop settings.
type EmergencyConfig struct {
	StopFile     string        `yaml:"stop_file"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ExecutionConfig contains scheduling concurrency settings.
type ExecutionConfig struct {
	MaxConcurrentFaults int  `yaml:"max_concurrent_faults"`
	DryRun              bool `yaml:"dry_run"`
}

// SafetyConfig contains blast-radius limits. Neither the engine nor cmd/faultctl enforces them.
type SafetyConfig struct {
	MaxDuration         time.Duration `yaml:"max_duration"`
	RequireConfirmation bool          `yaml:"require_confirmation"`
}

// DefaultConfig returns the engine's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "console",
		},
		Binaries: BinariesConfig{
			Nsenter:  "nsenter",
			TC:       "tc",
			Ifconfig: "ifconfig",
			StressNG: "stress-ng",
			Tcset:    "tcset",
			Cgget:    "cgget",
		},
		Defaults: DefaultsConfig{
			BottleneckBurst:   "1600",
			BottleneckLimit:   "3000",
			BurstDuration:     1 * time.Second,
			BurstPeriod:       2 * time.Second,
			DegradationStep:   5,
			DegradationLength: 1 * time.Second,
			DegradationStart:  0,
			DegradationEnd:    100,
			RedirectMode:      "redirect",
			CommandWarnAfter:  2 * time.Second,
		},
		Emergency: EmergencyConfig{
			StopFile:     "/tmp/faultd-emergency-stop",
			PollInterval: 1 * time.Second,
		},
		Execution: ExecutionConfig{
			MaxConcurrentFaults: 5,
			DryRun:              false,
		},
		Safety: SafetyConfig{
			MaxDuration:         1 * time.Hour,
			RequireConfirmation: true,
		},
	}
}

// Load loads configuration from a YAML file. An empty path means "faultd.yaml"; when the file
// doesn't exist, DefaultConfig is returned. $VARS in the file are expanded against the process
// environment before parsing.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "faultd.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for obviously unusable values.
func (c *Config) Validate() error {
	if c.Binaries.Nsenter == "" {
		return fmt.Errorf("binaries.nsenter is required")
	}

	if c.Binaries.TC == "" {
		return fmt.Errorf("binaries.tc is required")
	}

	if c.Execution.MaxConcurrentFaults < 1 {
		return fmt.Errorf("execution.max_concurrent_faults must be at least 1")
	}

	if c.Defaults.DegradationEnd < c.Defaults.DegradationStart {
		return fmt.Errorf("defaults.degradation_end must be >= defaults.degradation_start")
	}

	return nil
}
