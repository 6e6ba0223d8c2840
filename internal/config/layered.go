package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Layer represents a configuration layer source.
type Layer string

const (
	// LayerDefaults represents default configuration values.
	LayerDefaults Layer = "defaults"

	// LayerFile represents configuration from a file.
	LayerFile Layer = "file"

	// LayerEnv represents configuration from environment variables.
	LayerEnv Layer = "env"

	// LayerFlags represents configuration from command-line flags.
	LayerFlags Layer = "flags"
)

// LayeredLoader provides layered configuration loading.
// Configuration is loaded in the following order:
// 1. Defaults - DefaultDiffConfig()
// 2. File - configuration file (YAML)
// 3. Environment - BINDIFF_* variables
// 4. Flags - command-line flags that were explicitly set
//
// Each layer overrides values from previous layers.
type LayeredLoader struct {
	enabledLayers map[Layer]bool
	lookup        func(string) (string, bool)
}

// NewLayeredLoader creates a new layered configuration loader with every
// layer enabled.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{
		enabledLayers: map[Layer]bool{
			LayerDefaults: true,
			LayerFile:     true,
			LayerEnv:      true,
			LayerFlags:    true,
		},
		lookup: os.LookupEnv,
	}
}

// EnableLayer enables a specific configuration layer.
func (l *LayeredLoader) EnableLayer(layer Layer) {
	l.enabledLayers[layer] = true
}

// DisableLayer disables a specific configuration layer.
func (l *LayeredLoader) DisableLayer(layer Layer) {
	l.enabledLayers[layer] = false
}

// WithLookup replaces the environment source, mainly for tests.
func (l *LayeredLoader) WithLookup(lookup func(string) (string, bool)) *LayeredLoader {
	l.lookup = lookup
	return l
}

// LoadDiffConfig loads a diff configuration with layered precedence.
// A missing file at configPath is not an error; fs may be nil.
// The result is validated before it is returned.
func (l *LayeredLoader) LoadDiffConfig(configPath string, fs *pflag.FlagSet) (*DiffConfig, error) {
	var cfg *DiffConfig

	// Layer 1: Defaults
	if l.enabledLayers[LayerDefaults] {
		cfg = DefaultDiffConfig()
	} else {
		cfg = &DiffConfig{}
	}

	// Layer 2: File
	if l.enabledLayers[LayerFile] && configPath != "" {
		if err := l.mergeFromFile(cfg, configPath); err != nil {
			// If file doesn't exist, it's not an error - just skip this layer
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	// Layer 3: Environment
	if l.enabledLayers[LayerEnv] {
		if err := LoadFromLookup(cfg, l.lookup); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	// Layer 4: Flags
	if l.enabledLayers[LayerFlags] && fs != nil {
		if err := ApplyFlags(fs, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from flags: %w", err)
		}
	}

	if err := l.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFromFile loads configuration from a YAML file and merges it into cfg.
// Unknown keys are rejected.
func (l *LayeredLoader) mergeFromFile(cfg *DiffConfig, filePath string) error {
	// #nosec G304 -- filePath is provided by the operator.
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// ValidateConfig validates a configuration and returns detailed errors.
func (l *LayeredLoader) ValidateConfig(cfg Validator) error {
	return cfg.Validate()
}
