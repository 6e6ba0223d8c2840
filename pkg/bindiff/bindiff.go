package bindiff

import (
	"context"

	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/engine"
	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/hostio"
	"github.com/coral-mesh/bindiff/internal/model"
)

// Host records.
type (
	RawFunction    = extract.RawFunction
	RawBlock       = extract.RawBlock
	RawInstruction = extract.RawInstruction
	Export         = hostio.Export
)

// Normalized program model.
type (
	Snapshot               = model.Snapshot
	Function               = model.Function
	MalformedFunctionError = model.MalformedFunctionError
)

// Diff results.
type (
	MatchType      = model.MatchType
	MatchResult    = model.MatchResult
	MatchCandidate = model.MatchCandidate
	MatchDetails   = model.MatchDetails
	MatchSet       = model.MatchSet
	Stats          = model.Stats
	PhaseStats     = model.PhaseStats
	TypeStats      = model.TypeStats
)

// Match types in phase order.
const (
	MatchExact      = model.MatchExact
	MatchName       = model.MatchName
	MatchMDIndex    = model.MatchMDIndex
	MatchSPP        = model.MatchSPP
	MatchStructural = model.MatchStructural
	MatchFuzzy      = model.MatchFuzzy
)

// Configuration and engine.
type (
	Config        = config.DiffConfig
	Engine        = engine.Engine
	EngineConfig  = engine.Config
	ProgressEvent = engine.ProgressEvent
)

// Errors returned by the package. Use errors.Is to test for them.
var (
	ErrInvalidConfig     = model.ErrInvalidConfig
	ErrCancelled         = model.ErrCancelled
	ErrMalformedFunction = model.ErrMalformedFunction
	ErrFunctionNotFound  = engine.ErrFunctionNotFound
)

// DefaultConfig returns the default tuning.
func DefaultConfig() *Config {
	return config.DefaultDiffConfig()
}

// LoadConfig resolves the layered configuration: defaults, the file at path
// (or BINDIFF_CONFIG, or ~/.bindiff/config.yaml when path is empty), then
// BINDIFF_* environment variables.
func LoadConfig(path string) (*Config, error) {
	return config.NewLoader(path).Load(nil)
}

// Normalize builds a snapshot from raw records. Malformed records are kept
// out of the snapshot and listed by Snapshot.Rejected.
func Normalize(ctx context.Context, binaryID string, raws []RawFunction) (*Snapshot, error) {
	return extract.Normalize(ctx, binaryID, raws, extract.Options{})
}

// ReadExport reads a JSON or YAML function export from disk.
func ReadExport(path string) (*Export, error) {
	return hostio.ReadFile(path)
}

// NewEngine creates an engine with an optional logger and progress callback.
func NewEngine(cfg EngineConfig) *Engine {
	return engine.New(cfg)
}

// Diff matches the functions of a against b without logging.
func Diff(ctx context.Context, a, b *Snapshot, cfg Config) (*MatchSet, error) {
	return engine.Diff(ctx, a, b, cfg)
}
