// Package safe reads operator-supplied files with size and type checks.
package safe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	bderrors "github.com/coral-mesh/bindiff/internal/errors"
)

// DefaultMaxFileSize is the default maximum file size (1GiB).
const DefaultMaxFileSize = 1 << 30

// ReadOptions configures ReadFile.
type ReadOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
	// RejectSymlinks refuses a path that is itself a symlink.
	RejectSymlinks bool
}

// ReadFile reads a regular file of at most opts.MaxSize bytes. Directories,
// devices and pipes are rejected before anything is read.
func ReadFile(logger zerolog.Logger, path string, opts ReadOptions) ([]byte, error) {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	cleanPath := filepath.Clean(path)

	if opts.RejectSymlinks {
		info, err := os.Lstat(cleanPath)
		if err != nil {
			return nil, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("file %q is a symlink", path)
		}
	}

	// #nosec G304 -- path is provided by the operator.
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer bderrors.DeferClose(logger, f, "failed to close file")

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", path, maxSize)
	}

	// The size can change between Stat and the read.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", path, maxSize)
	}
	return data, nil
}
