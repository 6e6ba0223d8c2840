package testutil

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/coral-mesh/bindiff/internal/extract"
	"github.com/coral-mesh/bindiff/internal/model"
)

// Body is a function CFG: one mnemonic list per block and directed edges
// between block indices. Block 0 is the entry.
type Body struct {
	Blocks [][]string
	Edges  [][2]int
}

// Chain links blocks in a straight line.
func Chain(blocks ...[]string) Body {
	b := Body{Blocks: blocks}
	for i := 0; i+1 < len(blocks); i++ {
		b.Edges = append(b.Edges, [2]int{i, i + 1})
	}
	return b
}

// Diamond is an if/else: entry, two arms and a join.
func Diamond(entry, left, right, join []string) Body {
	return Body{
		Blocks: [][]string{entry, left, right, join},
		Edges:  [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}},
	}
}

// Loop is entry, a self-contained loop body with a back edge, and an exit.
func Loop(entry, body, exit []string) Body {
	return Body{
		Blocks: [][]string{entry, body, exit},
		Edges:  [][2]int{{0, 1}, {1, 1}, {1, 2}},
	}
}

// Clone deep-copies b.
func (b Body) Clone() Body {
	out := Body{Edges: slices.Clone(b.Edges)}
	for _, blk := range b.Blocks {
		out.Blocks = append(out.Blocks, slices.Clone(blk))
	}
	return out
}

// InsertBlock splits the first edge leaving block after with a new block.
// Block indices above after shift by one.
func (b Body) InsertBlock(after int, mnemonics ...string) Body {
	out := Body{}
	for i, blk := range b.Blocks {
		out.Blocks = append(out.Blocks, slices.Clone(blk))
		if i == after {
			out.Blocks = append(out.Blocks, slices.Clone(mnemonics))
		}
	}

	shift := func(i int) int {
		if i > after {
			return i + 1
		}
		return i
	}
	split := false
	for _, e := range b.Edges {
		from, to := shift(e[0]), shift(e[1])
		if e[0] == after && !split {
			out.Edges = append(out.Edges, [2]int{from, after + 1}, [2]int{after + 1, to})
			split = true
			continue
		}
		out.Edges = append(out.Edges, [2]int{from, to})
	}
	if !split {
		out.Edges = append(out.Edges, [2]int{after, after + 1})
	}
	return out
}

// Replace returns a copy with one instruction's mnemonic changed.
func (b Body) Replace(block, ins int, mnemonic string) Body {
	out := b.Clone()
	out.Blocks[block][ins] = mnemonic
	return out
}

var genMnemonics = []string{
	"mov", "lea", "add", "sub", "imul", "xor", "and", "or", "shl", "shr",
	"cmp", "test", "push", "pop", "movzx", "movsx", "inc", "dec", "neg", "not",
	"sete", "setne", "cmovz", "cmovnz", "nop",
}

// Generated builds a deterministic pseudo-random body of n blocks, each with
// 3 to 12 instructions, chained with a few extra forward branches.
func Generated(seed uint64, n int) Body {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := Body{}
	for i := 0; i < n; i++ {
		k := 3 + r.IntN(10)
		blk := make([]string, k)
		for j := range blk {
			blk[j] = genMnemonics[r.IntN(len(genMnemonics))]
		}
		switch {
		case i == n-1:
			blk[k-1] = "ret"
		case r.IntN(3) == 0 && i+2 < n:
			blk[k-1] = "jz"
			b.Edges = append(b.Edges, [2]int{i, i + 2 + r.IntN(n-i-2)})
		default:
			blk[k-1] = "jmp"
		}
		b.Blocks = append(b.Blocks, blk)
		if i+1 < n {
			b.Edges = append(b.Edges, [2]int{i, i + 1})
		}
	}
	return b
}

const blockStride = 0x100

// Raw converts body into a host record at addr.
func Raw(addr uint64, name string, body Body, callees ...string) extract.RawFunction {
	raw := extract.RawFunction{Address: addr, Name: name, Callees: callees}
	for i, blk := range body.Blocks {
		base := addr + uint64(i)*blockStride
		rb := extract.RawBlock{Address: base}
		for j, m := range blk {
			rb.Instructions = append(rb.Instructions, extract.RawInstruction{Address: base + uint64(j), Mnemonic: m})
		}
		raw.Blocks = append(raw.Blocks, rb)
	}
	for _, e := range body.Edges {
		if e[0] < len(raw.Blocks) && e[1] < len(body.Blocks) {
			raw.Blocks[e[0]].Successors = append(raw.Blocks[e[0]].Successors, addr+uint64(e[1])*blockStride)
		}
	}
	return raw
}

// Flat is a host record without a CFG.
func Flat(addr uint64, name string, mnemonics ...string) extract.RawFunction {
	raw := extract.RawFunction{Address: addr, Name: name}
	for i, m := range mnemonics {
		raw.Instructions = append(raw.Instructions, extract.RawInstruction{Address: addr + uint64(i), Mnemonic: m})
	}
	return raw
}

// Function normalizes a single body into a function record.
func Function(t testing.TB, binaryID string, addr uint64, name string, body Body, callees ...string) *model.Function {
	t.Helper()
	f, err := extract.NormalizeFunction(binaryID, Raw(addr, name, body, callees...))
	if err != nil {
		t.Fatalf("normalize %s: %v", name, err)
	}
	return f
}

// Snapshot normalizes raws into a snapshot and fails the test on rejection.
func Snapshot(t testing.TB, id string, raws ...extract.RawFunction) *model.Snapshot {
	t.Helper()
	s, err := extract.Normalize(context.Background(), id, raws, extract.Options{})
	if err != nil {
		t.Fatalf("normalize snapshot %s: %v", id, err)
	}
	if len(s.Rejected()) > 0 {
		t.Fatalf("snapshot %s rejected %d functions: %v", id, len(s.Rejected()), s.Rejected()[0])
	}
	return s
}

// Name formats a deterministic symbol name.
func Name(prefix string, i int) string {
	return fmt.Sprintf("%s_%03d", prefix, i)
}
