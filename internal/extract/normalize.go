// Package extract normalizes host function records into immutable
// model.Functions and assembles them into a model.Snapshot.
package extract

import (
	"cmp"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/coral-mesh/bindiff/internal/disasm"
	"github.com/coral-mesh/bindiff/internal/model"
	"github.com/coral-mesh/bindiff/internal/workpool"
)

// Options controls normalization.
type Options struct {
	// Workers bounds digest computation concurrency. Zero means GOMAXPROCS.
	Workers int
}

type outcome struct {
	fn  *model.Function
	bad *model.MalformedFunctionError
}

// Normalize converts raws into a snapshot identified by binaryID.
//
// Malformed functions and functions whose address repeats an earlier one are
// skipped and listed in Snapshot.Rejected. The only error is cancellation.
func Normalize(ctx context.Context, binaryID string, raws []RawFunction, opts Options) (*model.Snapshot, error) {
	results := make([]outcome, len(raws))
	err := workpool.Run(ctx, len(raws), opts.Workers, func(_ context.Context, i int) error {
		fn, bad := normalizeOne(binaryID, raws[i])
		results[i] = outcome{fn: fn, bad: bad}
		return nil
	})
	if err != nil {
		return nil, model.Cancelled(err)
	}

	var (
		fns      = make([]*model.Function, 0, len(raws))
		rejected []*model.MalformedFunctionError
		seen     = make(map[uint64]struct{}, len(raws))
	)
	for i, r := range results {
		if r.bad != nil {
			rejected = append(rejected, r.bad)
			continue
		}
		if _, dup := seen[r.fn.Address()]; dup {
			rejected = append(rejected, malformed(raws[i], "duplicate function address"))
			continue
		}
		seen[r.fn.Address()] = struct{}{}
		fns = append(fns, r.fn)
	}

	snap, err := model.NewSnapshot(binaryID, fns, rejected)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	return snap, nil
}

// NormalizeFunction converts a single raw function.
func NormalizeFunction(binaryID string, raw RawFunction) (*model.Function, error) {
	fn, bad := normalizeOne(binaryID, raw)
	if bad != nil {
		return nil, bad
	}
	return fn, nil
}

func normalizeOne(binaryID string, raw RawFunction) (*model.Function, *model.MalformedFunctionError) {
	spec := model.FunctionSpec{
		Address:  raw.Address,
		Name:     strings.TrimSpace(raw.Name),
		BinaryID: binaryID,
		Callees:  cleanRefs(raw.Callees),
		Callers:  cleanRefs(raw.Callers),
	}

	switch {
	case len(raw.Blocks) > 0:
		if err := fromBlocks(&spec, raw.Blocks); err != nil {
			return nil, malformed(raw, err.Error())
		}
	case raw.Code != "":
		if err := fromCode(&spec, raw); err != nil {
			return nil, malformed(raw, err.Error())
		}
	case len(raw.Instructions) > 0:
		ins, err := convertInstructions(raw.Instructions)
		if err != nil {
			return nil, malformed(raw, err.Error())
		}
		spec.Instructions = ins
		spec.Degenerate = true
	default:
		return nil, malformed(raw, "no instruction listing")
	}

	return model.NewFunction(spec), nil
}

func fromBlocks(spec *model.FunctionSpec, raws []RawBlock) error {
	blocks := slices.Clone(raws)
	slices.SortStableFunc(blocks, func(a, b RawBlock) int {
		return cmp.Compare(a.Address, b.Address)
	})

	total := 0
	index := make(map[uint64]int, len(blocks))
	for i, b := range blocks {
		if _, dup := index[b.Address]; dup {
			// Overlapping blocks: keep the listing, drop the CFG.
			spec.Degenerate = true
		}
		index[b.Address] = i
		total += len(b.Instructions)
	}
	if total == 0 {
		return errors.New("no instructions in any block")
	}

	if spec.Degenerate {
		for _, b := range blocks {
			ins, err := convertInstructions(b.Instructions)
			if err != nil {
				return err
			}
			spec.Instructions = append(spec.Instructions, ins...)
		}
		return nil
	}

	spec.Blocks = make([]model.Block, len(blocks))
	for i, b := range blocks {
		ins, err := convertInstructions(b.Instructions)
		if err != nil {
			return err
		}
		spec.Blocks[i] = model.Block{Address: b.Address, Instructions: ins}
		for _, succ := range b.Successors {
			// Successors outside the function are not CFG edges.
			if j, ok := index[succ]; ok {
				spec.Edges = append(spec.Edges, model.Edge{From: i, To: j})
			}
		}
	}
	return nil
}

func fromCode(spec *model.FunctionSpec, raw RawFunction) error {
	code, err := hex.DecodeString(strings.TrimSpace(raw.Code))
	if err != nil {
		return fmt.Errorf("invalid code encoding: %w", err)
	}
	arch, err := disasm.ParseArch(raw.Arch)
	if err != nil {
		return err
	}
	listing, err := disasm.Disassemble(code, raw.Address, arch)
	if err != nil {
		return err
	}
	if len(listing.Blocks) == 0 {
		return errors.New("no decodable instructions")
	}

	spec.Blocks = listing.Blocks
	spec.Edges = listing.Edges
	if len(spec.Callees) == 0 {
		spec.Callees = listing.Callees
	}
	return nil
}

func convertInstructions(raws []RawInstruction) ([]model.Instruction, error) {
	out := make([]model.Instruction, 0, len(raws))
	for _, r := range raws {
		m := NormalizeMnemonic(r.Mnemonic)
		if m == "" {
			return nil, fmt.Errorf("empty mnemonic at 0x%x", r.Address)
		}
		out = append(out, model.Instruction{
			Address:  r.Address,
			Mnemonic: m,
			Operands: r.Operands,
		})
	}
	return out, nil
}

// NormalizeMnemonic lower-cases and trims a mnemonic.
func NormalizeMnemonic(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}

func cleanRefs(in []string) []string {
	var out []string
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func malformed(raw RawFunction, reason string) *model.MalformedFunctionError {
	return &model.MalformedFunctionError{
		Address: raw.Address,
		Name:    strings.TrimSpace(raw.Name),
		Reason:  reason,
	}
}
