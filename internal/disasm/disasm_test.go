package disasm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/bindiff/internal/model"
)

func mnemonicsOf(b model.Block) []string {
	out := make([]string, len(b.Instructions))
	for i, in := range b.Instructions {
		out[i] = in.Mnemonic
	}
	return out
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in      string
		want    Arch
		wantErr bool
	}{
		{"amd64", ArchAMD64, false},
		{"x86_64", ArchAMD64, false},
		{"AArch64", ArchARM64, false},
		{" arm64 ", ArchARM64, false},
		{"mips", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseArch(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisassemble_AMD64(t *testing.T) {
	code := []byte{
		0x55,             // 0x1000 push rbp
		0x48, 0x89, 0xe5, // 0x1001 mov rbp, rsp
		0x85, 0xff, // 0x1004 test edi, edi
		0x74, 0x07, // 0x1006 je 0x100f
		0xe8, 0x00, 0x01, 0x00, 0x00, // 0x1008 call 0x110d
		0xeb, 0x01, // 0x100d jmp 0x1010
		0x90, // 0x100f nop
		0x5d, // 0x1010 pop rbp
		0xc3, // 0x1011 ret
	}

	l, err := Disassemble(code, 0x1000, ArchAMD64)
	require.NoError(t, err)
	require.Len(t, l.Blocks, 4)

	assert.Equal(t, uint64(0x1000), l.Blocks[0].Address)
	assert.Equal(t, []string{"push", "mov", "test", "je"}, mnemonicsOf(l.Blocks[0]))
	assert.Equal(t, uint64(0x1008), l.Blocks[1].Address)
	assert.Equal(t, []string{"call", "jmp"}, mnemonicsOf(l.Blocks[1]))
	assert.Equal(t, []string{"nop"}, mnemonicsOf(l.Blocks[2]))
	assert.Equal(t, []string{"pop", "ret"}, mnemonicsOf(l.Blocks[3]))

	assert.ElementsMatch(t, []model.Edge{{From: 0, To: 2}, {From: 0, To: 1}, {From: 1, To: 3}, {From: 2, To: 3}}, l.Edges)
	assert.Equal(t, []string{"sub_110d"}, l.Callees)
}

func TestDisassemble_AMD64TailCall(t *testing.T) {
	code := []byte{
		0xf3, 0x0f, 0x1e, 0xfa, // endbr64
		0x31, 0xc0, // xor eax, eax
		0xe9, 0xf5, 0x0f, 0x00, 0x00, // jmp rel32 0x1000
	}

	l, err := Disassemble(code, 0x0, ArchAMD64)
	require.NoError(t, err)
	require.Len(t, l.Blocks, 1)
	assert.Equal(t, []string{"endbr64", "xor", "jmp"}, mnemonicsOf(l.Blocks[0]))
	assert.Empty(t, l.Edges)
	assert.Equal(t, []string{"sub_1000"}, l.Callees)
}

func TestDisassemble_ARM64(t *testing.T) {
	code := []byte{
		0x40, 0x00, 0x00, 0xb4, // 0x2000 cbz x0, 0x2008
		0x40, 0x00, 0x00, 0x94, // 0x2004 bl 0x2104
		0xc0, 0x03, 0x5f, 0xd6, // 0x2008 ret
	}

	l, err := Disassemble(code, 0x2000, ArchARM64)
	require.NoError(t, err)
	require.Len(t, l.Blocks, 3)

	assert.Equal(t, []string{"cbz"}, mnemonicsOf(l.Blocks[0]))
	assert.Equal(t, []string{"bl"}, mnemonicsOf(l.Blocks[1]))
	assert.Equal(t, []string{"ret"}, mnemonicsOf(l.Blocks[2]))
	assert.ElementsMatch(t, []model.Edge{{From: 0, To: 2}, {From: 0, To: 1}, {From: 1, To: 2}}, l.Edges)
	assert.Equal(t, []string{"sub_2104"}, l.Callees)
}

func TestDecode_ARM64ConditionalBranch(t *testing.T) {
	insts, err := Decode([]byte{0x40, 0x00, 0x00, 0x54}, 0x3000, ArchARM64)
	require.NoError(t, err)
	require.Len(t, insts, 1)

	assert.Equal(t, FlowCondJump, insts[0].Flow)
	assert.True(t, insts[0].HasTarget)
	assert.Equal(t, uint64(0x3008), insts[0].Target)
	assert.True(t, strings.HasPrefix(insts[0].Mnemonic, "b."))
}

func TestDecode_UnsupportedArch(t *testing.T) {
	_, err := Decode([]byte{0x90}, 0, Arch("sparc"))
	assert.Error(t, err)
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split(nil).Blocks)
}
