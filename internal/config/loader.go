package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/bindiff/internal/constants"
)

// Loader resolves the config file location and loads or saves it.
type Loader struct {
	path string
}

// NewLoader creates a new config loader.
// The config file is resolved in this order:
//  1. explicit, when non-empty (the --config flag).
//  2. BINDIFF_CONFIG environment variable.
//  3. ~/.bindiff/config.yaml.
//  4. no file, when there is no home directory (defaults and env only).
func NewLoader(explicit string) *Loader {
	if explicit != "" {
		return &Loader{path: explicit}
	}
	if p := os.Getenv(constants.ConfigEnvVar); p != "" {
		return &Loader{path: p}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return &Loader{}
	}
	return &Loader{path: filepath.Join(homeDir, constants.DefaultDir, constants.ConfigFile)}
}

// ConfigPath returns the resolved config file path; empty when none applies.
func (l *Loader) ConfigPath() string {
	return l.path
}

// Load loads and validates the diff config: defaults, then the file, then
// the environment, then any flags set on fs.
func (l *Loader) Load(fs *pflag.FlagSet) (*DiffConfig, error) {
	return NewLayeredLoader().LoadDiffConfig(l.path, fs)
}

// Save writes cfg to the resolved path, creating parent directories.
func (l *Loader) Save(cfg *DiffConfig) error {
	if l.path == "" {
		return fmt.Errorf("no config path: set --config or %s", constants.ConfigEnvVar)
	}

	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal diff config: %w", err)
	}

	//nolint:gosec // G306: Config file is not sensitive
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write diff config: %w", err)
	}

	return nil
}
