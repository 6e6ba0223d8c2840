package model

import (
	"cmp"
	"slices"
)

// Instruction is a single normalized instruction. Mnemonic is lower-cased and
// trimmed; operands are kept for display and callee extraction only and never
// take part in matching.
type Instruction struct {
	Address  uint64   `json:"address"`
	Mnemonic string   `json:"mnemonic"`
	Operands []string `json:"operands,omitempty"`
}

// Block is a basic block: a straight-line instruction sequence.
type Block struct {
	Address      uint64        `json:"address"`
	Instructions []Instruction `json:"instructions"`
}

// Edge is a directed control-flow edge between two blocks of the same
// function, expressed as indices into Function.Blocks.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MnemonicCount is one entry of a function's opcode histogram.
type MnemonicCount struct {
	Mnemonic string `json:"mnemonic"`
	Count    int    `json:"count"`
}

// Counts are the structural counts the metadata index is derived from.
type Counts struct {
	Blocks       int `json:"blocks"`
	Edges        int `json:"edges"`
	InDegree     int `json:"in_degree"`
	OutDegree    int `json:"out_degree"`
	Instructions int `json:"instructions"`
}

// FunctionSpec is the validated input to NewFunction.
type FunctionSpec struct {
	Address  uint64
	Name     string
	BinaryID string

	// Blocks must be ordered by address. Edges index into Blocks.
	Blocks []Block
	Edges  []Edge

	// Instructions is the flat listing used when Blocks is empty.
	Instructions []Instruction

	Callees []string
	Callers []string

	// Degenerate marks functions without a usable CFG.
	Degenerate bool
}

// Function is the immutable representation of one function of a binary.
type Function struct {
	address    uint64
	name       string
	binaryID   string
	blocks     []Block
	edges      []Edge
	entry      int
	callees    []string
	callers    []string
	degenerate bool

	mnemonics []string
	histogram []MnemonicCount
	counts    Counts
	cfgHash   uint64
	callHash  uint64
	mdIndex   float64
}

// NewFunction builds a Function from spec and computes all of its digests.
// The slices of the FunctionSpec are copied, so later changes to them are not observed.
func NewFunction(spec FunctionSpec) *Function {
	f := &Function{
		address:    spec.Address,
		name:       spec.Name,
		binaryID:   spec.BinaryID,
		blocks:     cloneBlocks(spec.Blocks),
		edges:      normalizeEdges(spec.Edges, len(spec.Blocks)),
		callees:    sortedCopy(spec.Callees),
		callers:    sortedCopy(spec.Callers),
		degenerate: spec.Degenerate || len(spec.Blocks) == 0,
	}

	for i, b := range f.blocks {
		if b.Address == f.address {
			f.entry = i
			break
		}
	}

	if len(f.blocks) > 0 {
		for _, b := range f.blocks {
			for _, ins := range b.Instructions {
				f.mnemonics = append(f.mnemonics, ins.Mnemonic)
			}
		}
	} else {
		for _, ins := range spec.Instructions {
			f.mnemonics = append(f.mnemonics, ins.Mnemonic)
		}
	}

	f.histogram = buildHistogram(f.mnemonics)
	f.counts = Counts{
		Blocks:       len(f.blocks),
		Edges:        len(f.edges),
		InDegree:     len(f.callers),
		OutDegree:    len(f.callees),
		Instructions: len(f.mnemonics),
	}
	if !f.degenerate {
		f.cfgHash = structuralHash(f)
	}
	f.callHash = callGraphHash(f.callers, f.callees)
	f.mdIndex = MetadataIndex(f.counts, DefaultMDWeights())

	return f
}

// Address is the function's entry address in its binary.
func (f *Function) Address() uint64 { return f.address }

// Name is the fully-qualified display name (may be empty).
func (f *Function) Name() string { return f.name }

// BinaryID identifies the snapshot the function belongs to.
func (f *Function) BinaryID() string { return f.binaryID }

// Blocks returns the address-ordered basic blocks. Read-only.
func (f *Function) Blocks() []Block { return f.blocks }

// Edges returns the sorted, deduplicated CFG edges. Read-only.
func (f *Function) Edges() []Edge { return f.edges }

// Entry is the index of the entry block.
func (f *Function) Entry() int { return f.entry }

// Callees returns the sorted callee references. Read-only.
func (f *Function) Callees() []string { return f.callees }

// Callers returns the sorted caller references. Read-only.
func (f *Function) Callers() []string { return f.callers }

// Degenerate reports whether the function has no usable CFG.
func (f *Function) Degenerate() bool { return f.degenerate }

// Mnemonics returns the linearized mnemonic sequence. Read-only.
func (f *Function) Mnemonics() []string { return f.mnemonics }

// Histogram returns the opcode histogram sorted by mnemonic. Read-only.
func (f *Function) Histogram() []MnemonicCount { return f.histogram }

// Counts returns the structural counts.
func (f *Function) Counts() Counts { return f.counts }

// CFGHash is the address-independent structural hash (0 for degenerate functions).
func (f *Function) CFGHash() uint64 { return f.cfgHash }

// CallGraphHash digests the function's call-graph neighbourhood.
func (f *Function) CallGraphHash() uint64 { return f.callHash }

// MDIndex is the metadata index computed with DefaultMDWeights.
func (f *Function) MDIndex() float64 { return f.mdIndex }

// Label returns the name when present, otherwise the hex address.
func (f *Function) Label() string {
	if f.name != "" {
		return f.name
	}
	return hexAddr(f.address)
}

func cloneBlocks(in []Block) []Block {
	if len(in) == 0 {
		return nil
	}
	out := make([]Block, len(in))
	for i, b := range in {
		ins := make([]Instruction, len(b.Instructions))
		for j, x := range b.Instructions {
			ins[j] = Instruction{
				Address:  x.Address,
				Mnemonic: x.Mnemonic,
				Operands: slices.Clone(x.Operands),
			}
		}
		out[i] = Block{Address: b.Address, Instructions: ins}
	}
	return out
}

func normalizeEdges(in []Edge, n int) []Edge {
	out := make([]Edge, 0, len(in))
	for _, e := range in {
		if e.From < 0 || e.To < 0 || e.From >= n || e.To >= n {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return slices.Compact(out)
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func buildHistogram(mnemonics []string) []MnemonicCount {
	counts := make(map[string]int, len(mnemonics))
	for _, m := range mnemonics {
		counts[m]++
	}
	out := make([]MnemonicCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, MnemonicCount{Mnemonic: m, Count: c})
	}
	slices.SortFunc(out, func(a, b MnemonicCount) int {
		return cmp.Compare(a.Mnemonic, b.Mnemonic)
	})
	return out
}
