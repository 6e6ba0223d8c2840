package helpers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/engine"
	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/hostio"
	"github.com/coral-mesh/bindiff/internal/logging"
	"github.com/coral-mesh/bindiff/internal/model"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagLogJSON  = "log-json"
)

// Session bundles the logger and effective configuration of one command.
type Session struct {
	Logger zerolog.Logger
	Config *config.DiffConfig
	Loader *config.Loader
}

// NewSession resolves the logger and the layered diff configuration for cmd.
func NewSession(cmd *cobra.Command) (*Session, error) {
	flags := cmd.Flags()

	logCfg := logging.DefaultConfig()
	logCfg.Output = cmd.ErrOrStderr()
	if flags.Changed(FlagLogLevel) {
		logCfg.Level, _ = flags.GetString(FlagLogLevel)
	}
	if asJSON, _ := flags.GetBool(FlagLogJSON); asJSON {
		logCfg.Pretty = false
	}
	logger := logging.NewWithComponent(logCfg, "cli")

	configPath, _ := flags.GetString(FlagConfig)
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load(flags)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("config_path", loader.ConfigPath()).Msg("Configuration loaded")
	return &Session{Logger: logger, Config: cfg, Loader: loader}, nil
}

// LoadSnapshot reads the export at path and normalizes it.
func (s *Session) LoadSnapshot(ctx context.Context, path string) (*model.Snapshot, error) {
	exp, err := hostio.Reader{Logger: s.Logger}.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := exp.Snapshot(ctx, extract.Options{Workers: s.Config.Workers})
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s: %w", path, err)
	}
	return snap, nil
}

// LoadPair loads both sides of a diff.
func (s *Session) LoadPair(ctx context.Context, pathA, pathB string) (*model.Snapshot, *model.Snapshot, error) {
	a, err := s.LoadSnapshot(ctx, pathA)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.LoadSnapshot(ctx, pathB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Engine creates an engine logging through the session logger.
func (s *Session) Engine(progress func(engine.ProgressEvent)) *engine.Engine {
	return engine.New(engine.Config{Logger: &s.Logger, Progress: progress})
}
