package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/model"
)

func block(addr uint64, succ []uint64, mnemonics ...string) RawBlock {
	b := RawBlock{Address: addr, Successors: succ}
	for i, m := range mnemonics {
		b.Instructions = append(b.Instructions, RawInstruction{Address: addr + uint64(i), Mnemonic: m})
	}
	return b
}

func TestNormalize_Blocks(t *testing.T) {
	raws := []RawFunction{
		{
			Address: 0x2000,
			Name:    " second ",
			Blocks: []RawBlock{
				block(0x2010, nil, "RET"),
				block(0x2000, []uint64{0x2010, 0x9999}, " Push ", "CALL"),
			},
			Callees: []string{"puts", " "},
		},
		{
			Address:      0x1000,
			Name:         "first",
			Instructions: []RawInstruction{{Address: 0x1000, Mnemonic: "jmp"}},
		},
	}

	snap, err := Normalize(context.Background(), "bin-a", raws, Options{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	assert.Empty(t, snap.Rejected())

	first := snap.At(0)
	assert.Equal(t, "first", first.Name())
	assert.True(t, first.Degenerate())
	assert.Equal(t, "bin-a", first.BinaryID())

	second := snap.At(1)
	assert.Equal(t, "second", second.Name())
	assert.False(t, second.Degenerate())
	assert.Equal(t, []string{"push", "call", "ret"}, second.Mnemonics())
	assert.Equal(t, []model.Edge{{From: 0, To: 1}}, second.Edges())
	assert.Equal(t, []string{"puts"}, second.Callees())
	assert.Equal(t, 0, second.Entry())
}

func TestNormalize_Rejected(t *testing.T) {
	raws := []RawFunction{
		{Address: 0x10, Name: "empty"},
		{Address: 0x20, Blocks: []RawBlock{{Address: 0x20}}},
		{Address: 0x30, Instructions: []RawInstruction{{Mnemonic: "  "}}},
		{Address: 0x40, Instructions: []RawInstruction{{Mnemonic: "nop"}}},
		{Address: 0x40, Name: "dup", Instructions: []RawInstruction{{Mnemonic: "ret"}}},
		{Address: 0x50, Code: "zz", Arch: "amd64"},
		{Address: 0x60, Code: "90", Arch: "sparc"},
	}

	snap, err := Normalize(context.Background(), "bin", raws, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, uint64(0x40), snap.At(0).Address())

	rejected := snap.Rejected()
	require.Len(t, rejected, 6)
	for _, r := range rejected {
		assert.True(t, errors.Is(r, model.ErrMalformedFunction))
	}
	assert.Equal(t, "dup", rejected[3].Name)
	assert.Contains(t, rejected[3].Reason, "duplicate")
}

func TestNormalize_DuplicateBlocksDegenerate(t *testing.T) {
	raws := []RawFunction{{
		Address: 0x100,
		Blocks: []RawBlock{
			block(0x100, nil, "mov"),
			block(0x100, nil, "ret"),
		},
	}}

	snap, err := Normalize(context.Background(), "bin", raws, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	assert.True(t, snap.At(0).Degenerate())
	assert.Equal(t, 2, snap.At(0).Counts().Instructions)
}

func TestNormalize_Code(t *testing.T) {
	raws := []RawFunction{{
		Address: 0x1000,
		Name:    "f",
		Arch:    "x86_64",
		// test edi,edi; je +1; nop; ret
		Code: "85ff7401" + "90" + "c3",
	}}

	snap, err := Normalize(context.Background(), "bin", raws, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())

	fn := snap.At(0)
	assert.False(t, fn.Degenerate())
	assert.Len(t, fn.Blocks(), 3)
	assert.Equal(t, []string{"test", "je", "nop", "ret"}, fn.Mnemonics())
}

func TestNormalize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Normalize(ctx, "bin", []RawFunction{{Address: 1, Instructions: []RawInstruction{{Mnemonic: "ret"}}}}, Options{})
	assert.ErrorIs(t, err, model.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize_Empty(t *testing.T) {
	snap, err := Normalize(context.Background(), "bin", nil, Options{})
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
}

func TestNormalizeFunction(t *testing.T) {
	_, err := NormalizeFunction("bin", RawFunction{Address: 1})
	var mf *model.MalformedFunctionError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, uint64(1), mf.Address)
}
