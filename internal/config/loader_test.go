package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader_Resolution(t *testing.T) {
	t.Setenv("BINDIFF_CONFIG", "/etc/bindiff.yaml")
	assert.Equal(t, "/tmp/explicit.yaml", NewLoader("/tmp/explicit.yaml").ConfigPath())
	assert.Equal(t, "/etc/bindiff.yaml", NewLoader("").ConfigPath())

	t.Setenv("BINDIFF_CONFIG", "")
	t.Setenv("HOME", "/home/analyst")
	assert.Equal(t, filepath.Join("/home/analyst", ".bindiff", "config.yaml"), NewLoader("").ConfigPath())
}

func TestLoader_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	l := NewLoader(path)

	cfg := DefaultDiffConfig()
	cfg.SimilarityThreshold = 0.75
	cfg.NGramSize = 4
	require.NoError(t, l.Save(cfg))

	loaded, err := l.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.75, loaded.SimilarityThreshold)
	assert.Equal(t, 4, loaded.NGramSize)
	assert.InDelta(t, cfg.MDIndexWeights.Instructions, loaded.MDIndexWeights.Instructions, 1e-15)
}

func TestLoader_SaveWithoutPath(t *testing.T) {
	assert.Error(t, (&Loader{}).Save(DefaultDiffConfig()))
}
