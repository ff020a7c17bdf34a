// Package config provides configuration loading and management for
// neurolabel. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"neurolabel/internal/subjects"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Paths locates the input datasets.
	Paths struct {
		// SubjectsDir is the root directory holding per-subject data.
		// When empty, the SUBJECTS_DIR environment variable is used.
		SubjectsDir string `yaml:"subjectsDir"`
	} `yaml:"paths"`

	// Morph parameters
	Morph struct {
		// SmoothSteps is the number of neighbor-smoothing iterations
		// applied on the source surface before projection.
		SmoothSteps int `yaml:"smoothSteps"`

		// Surf names the target surface providing morphed vertex positions.
		Surf string `yaml:"surf"`
	} `yaml:"morph"`

	// Grow parameters
	Grow struct {
		// ExtentMM is the default geodesic radius for grown labels, in mm.
		ExtentMM float64 `yaml:"extentMM"`

		// Surf names the surface to grow along.
		Surf string `yaml:"surf"`
	} `yaml:"grow"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Paths.SubjectsDir = os.Getenv(subjects.EnvVar)

	cfg.Morph.SmoothSteps = 5
	cfg.Morph.Surf = "white"

	cfg.Grow.ExtentMM = 5.0
	cfg.Grow.Surf = "white"

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
