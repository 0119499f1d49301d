// Package config provides configuration loading and management for mirp.
// It handles loading configuration from YAML files, environment overrides
// for the MQTT connection, and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Label consensus parameters
	Labels struct {
		// WindowLow and WindowHigh are the smoothing window spans before and after each particle
		WindowLow  int `yaml:"windowLow"`
		WindowHigh int `yaml:"windowHigh"`

		// MinLength is the shortest segment kept after splitting
		MinLength int `yaml:"minLength"`

		// Cutoff is the default confidence cutoff, in percent
		Cutoff float64 `yaml:"cutoff"`
	} `yaml:"labels"`

	// Trend consensus parameters
	Trend struct {
		// RotCutoff is the largest rotation difference, in degrees, that links two particles
		RotCutoff float64 `yaml:"rotCutoff"`

		// ShiftCutoff is the largest jump, in angstrom, between neighbouring shifts within one stretch
		ShiftCutoff float64 `yaml:"shiftCutoff"`
	} `yaml:"trend"`

	// Seam register parameters
	Register struct {
		// Protofilaments is the protofilament number of the seam references
		Protofilaments int `yaml:"protofilaments"`

		// Rise is the helical rise in angstrom
		Rise float64 `yaml:"rise"`

		// TubulinOffset is the alpha/beta tubulin register shift in angstrom
		TubulinOffset float64 `yaml:"tubulinOffset"`

		// ReferenceShift is the axial shift, in angstrom, of the shifted seam references
		ReferenceShift float64 `yaml:"referenceShift"`
	} `yaml:"register"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many filaments are corrected in parallel
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Plots enables per-filament diagnostic plots
		Plots bool `yaml:"plots"`

		// PlotFormat is svg or png
		PlotFormat string `yaml:"plotFormat"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// RunLog is the file name, inside the output directory, progress is appended to
		RunLog string `yaml:"runLog"`
	} `yaml:"output"`

	// MQTT progress publishing; disabled when Broker is empty
	MQTT struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"clientId"`
		TopicPrefix string `yaml:"topicPrefix"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
	} `yaml:"mqtt"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Labels.WindowLow = 3
	cfg.Labels.WindowHigh = 4
	cfg.Labels.MinLength = 5
	cfg.Labels.Cutoff = 60

	cfg.Trend.RotCutoff = 8
	cfg.Trend.ShiftCutoff = 4

	cfg.Register.Protofilaments = 13
	cfg.Register.Rise = 9.4
	cfg.Register.TubulinOffset = 41
	cfg.Register.ReferenceShift = 40

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Plots = true
	cfg.Output.PlotFormat = "svg"
	cfg.Output.Verbose = true
	cfg.Output.RunLog = "run.out"

	cfg.MQTT.ClientID = "mirp"
	cfg.MQTT.TopicPrefix = "mirp"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); configPath == "" || os.IsNotExist(err) {
		cfg.ApplyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the MQTT settings from MIRP_MQTT_* environment variables
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		"MIRP_MQTT_BROKER":       &c.MQTT.Broker,
		"MIRP_MQTT_CLIENT_ID":    &c.MQTT.ClientID,
		"MIRP_MQTT_TOPIC_PREFIX": &c.MQTT.TopicPrefix,
		"MIRP_MQTT_USERNAME":     &c.MQTT.Username,
		"MIRP_MQTT_PASSWORD":     &c.MQTT.Password,
	}
	for env, dst := range overrides {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Validate checks that every parameter is usable
func (c *Config) Validate() error {
	if c.Labels.WindowLow < 0 || c.Labels.WindowHigh < 1 {
		return fmt.Errorf("labels window must be non-negative before and positive after, got %d/%d",
			c.Labels.WindowLow, c.Labels.WindowHigh)
	}
	if c.Labels.MinLength < 1 {
		return fmt.Errorf("labels.minLength must be at least 1, got %d", c.Labels.MinLength)
	}
	if c.Labels.Cutoff < 0 || c.Labels.Cutoff > 100 {
		return fmt.Errorf("labels.cutoff must be a percentage, got %g", c.Labels.Cutoff)
	}
	if c.Trend.RotCutoff <= 0 || c.Trend.ShiftCutoff <= 0 {
		return fmt.Errorf("trend cutoffs must be positive")
	}
	if c.Register.Protofilaments < 1 {
		return fmt.Errorf("register.protofilaments must be positive, got %d", c.Register.Protofilaments)
	}
	if c.Register.Rise <= 0 {
		return fmt.Errorf("register.rise must be positive, got %g", c.Register.Rise)
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("processing.numWorkers must be at least 1, got %d", c.Processing.NumWorkers)
	}
	switch c.Output.PlotFormat {
	case "svg", "png":
	default:
		return fmt.Errorf("output.plotFormat must be svg or png, got %q", c.Output.PlotFormat)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
