// Package errors provides helpers for cleanup whose failure must be logged
// rather than returned.
package errors

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// DeferClose closes closer and logs a failure at warn level with msg.
// A nil closer is ignored.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRemove removes the file at path and logs a failure. An empty path or
// a file that is already gone is not a failure.
func DeferRemove(logger zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove temporary file")
	}
}
