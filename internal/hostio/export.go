// Package hostio reads function exports produced by the host analysis
// platform. Exports are JSON or YAML documents holding one binary's raw
// function records.
package hostio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/safe"
)

// Format is an export encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export is one binary's function export.
type Export struct {
	// BinaryID identifies the binary; defaults to the file name.
	BinaryID string `json:"binary_id" yaml:"binary_id" jsonschema:"description=Identifier of the exported binary"`
	// Arch applies to functions that carry Code without their own Arch.
	Arch      string                `json:"arch,omitempty" yaml:"arch,omitempty" jsonschema:"description=Default architecture of functions with a code body"`
	Functions []extract.RawFunction `json:"functions" yaml:"functions"`
}

// Reader reads exports from disk.
type Reader struct {
	Logger zerolog.Logger
	// MaxSize caps the export file size. Zero means safe.DefaultMaxFileSize.
	MaxSize int64
}

// ReadFile reads an export with a reader that does not log.
func ReadFile(path string) (*Export, error) {
	return Reader{Logger: zerolog.Nop()}.ReadFile(path)
}

// FormatOf picks the format from the file extension. Unknown extensions
// fall back to sniffing the content.
func FormatOf(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// ReadFile reads and decodes the export at path.
func (r Reader) ReadFile(path string) (*Export, error) {
	data, err := safe.ReadFile(r.Logger, path, safe.ReadOptions{MaxSize: r.MaxSize})
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	exp, err := Decode(data, FormatOf(path, data))
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", path, err)
	}
	if exp.BinaryID == "" {
		exp.BinaryID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	r.Logger.Debug().
		Str("path", path).
		Str("binary_id", exp.BinaryID).
		Int("functions", len(exp.Functions)).
		Msg("Export loaded")
	return exp, nil
}

// Decode parses an export. Unknown fields are rejected.
func Decode(data []byte, format Format) (*Export, error) {
	exp := &Export{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(exp); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(exp); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	if exp.Arch != "" {
		for i := range exp.Functions {
			if exp.Functions[i].Code != "" && exp.Functions[i].Arch == "" {
				exp.Functions[i].Arch = exp.Arch
			}
		}
	}
	return exp, nil
}

// Encode writes e in format.
func Encode(w io.Writer, e *Export, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Snapshot normalizes the export's functions.
func (e *Export) Snapshot(ctx context.Context, opts extract.Options) (*model.Snapshot, error) {
	return extract.Normalize(ctx, e.BinaryID, e.Functions, opts)
}
