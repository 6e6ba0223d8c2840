package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	bderrors "github.com/coral-mesh/bindiff/internal/errors"
)

// WriteOutput runs write against stdout, or against path when set. A file is
// written to a temporary sibling first and renamed into place, so a failed
// run never leaves a truncated report behind.
func WriteOutput(logger zerolog.Logger, stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer bderrors.DeferRemove(logger, tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Report written")
	return nil
}
