package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromLookup(t *testing.T) {
	cfg := DefaultDiffConfig()
	env := envMap(map[string]string{
		"BINDIFF_SIMILARITY_THRESHOLD":  " 0.75 ",
		"BINDIFF_WORKERS":               "3",
		"BINDIFF_FUZZY_WEIGHT_COSINE":   "0.5",
		"BINDIFF_BLOCK_BUCKET_WIDTH":    "",
		"BINDIFF_UNRELATED_SETTING_XYZ": "ignored",
	})

	require.NoError(t, LoadFromLookup(cfg, env))
	assert.Equal(t, 0.75, cfg.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 0.5, cfg.FuzzyWeights.Cosine)
	assert.Equal(t, DefaultDiffConfig().BlockBucketWidth, cfg.BlockBucketWidth)
}

func TestLoadFromLookup_ReportsEveryBadValue(t *testing.T) {
	cfg := DefaultDiffConfig()
	env := envMap(map[string]string{
		"BINDIFF_NGRAM_SIZE":           "three",
		"BINDIFF_MARGIN_SCALE":         "wide",
		"BINDIFF_MD_WEIGHT_BLOCKS":     "1e400",
		"BINDIFF_SIMILARITY_THRESHOLD": "0.7",
	})

	err := LoadFromLookup(cfg, env)
	var multi *MultiValidationError
	require.ErrorAs(t, err, &multi)

	fields := make([]string, 0, len(multi.Errors))
	for _, e := range multi.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"BINDIFF_NGRAM_SIZE", "BINDIFF_MARGIN_SCALE", "BINDIFF_MD_WEIGHT_BLOCKS"}, fields)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
}

func TestLoadFromLookup_NonStruct(t *testing.T) {
	n := 1
	assert.NoError(t, LoadFromLookup(&n, envMap(nil)))
	assert.NoError(t, LoadFromLookup((*DiffConfig)(nil), envMap(nil)))
}
