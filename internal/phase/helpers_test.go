package phase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/testutil"
)

func snapshots(t *testing.T, a, b []extract.RawFunction) (*model.Snapshot, *model.Snapshot) {
	t.Helper()
	return testutil.Snapshot(t, "a", a...), testutil.Snapshot(t, "b", b...)
}

func newEnv(t *testing.T, a, b *model.Snapshot, mutate func(*config.DiffConfig)) *Env {
	t.Helper()
	cfg := config.DefaultDiffConfig()
	if mutate != nil {
		mutate(cfg)
	}
	env, err := NewEnv(testutil.NewTestContext(t), a, b, *cfg)
	require.NoError(t, err)
	return env
}

func flatFunction(t *testing.T, binaryID string, addr uint64, name string, mnemonics ...string) *model.Function {
	t.Helper()
	f, err := extract.NormalizeFunction(binaryID, testutil.Flat(addr, name, mnemonics...))
	require.NoError(t, err)
	require.True(t, f.Degenerate())
	return f
}

var (
	diamondBody = testutil.Diamond(
		[]string{"push", "mov", "cmp", "jz"},
		[]string{"mov", "add", "jmp"},
		[]string{"mov", "sub"},
		[]string{"pop", "ret"},
	)
	chainBody = testutil.Chain(
		[]string{"push", "mov", "lea"},
		[]string{"call", "test", "jnz"},
		[]string{"xor", "pop", "ret"},
	)
)
