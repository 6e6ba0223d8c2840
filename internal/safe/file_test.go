package safe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	regular := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(regular, []byte(`{"functions":[]}`), 0o600))

	link := filepath.Join(dir, "link.json")
	require.NoError(t, os.Symlink(regular, link))

	tests := []struct {
		name    string
		path    string
		opts    ReadOptions
		want    string
		wantErr string
	}{
		{name: "regular file", path: regular, want: `{"functions":[]}`},
		{name: "symlink followed", path: link, want: `{"functions":[]}`},
		{name: "symlink rejected", path: link, opts: ReadOptions{RejectSymlinks: true}, wantErr: "is a symlink"},
		{name: "directory", path: dir, wantErr: "not a regular file"},
		{name: "too large", path: regular, opts: ReadOptions{MaxSize: 4}, wantErr: "exceeds maximum allowed size of 4 bytes"},
		{name: "exact size", path: regular, opts: ReadOptions{MaxSize: 16}, want: `{"functions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(zerolog.Nop(), tt.path, tt.opts)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(zerolog.Nop(), filepath.Join(t.TempDir(), "missing"), ReadOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
