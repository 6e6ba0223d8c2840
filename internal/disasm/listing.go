package disasm

import (
	"fmt"
	"slices"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Listing is a function body split into basic blocks.
type Listing struct {
	Blocks  []model.Block
	Edges   []model.Edge
	Callees []string
}

// CalleeName is the placeholder name of a call target known only by address.
func CalleeName(addr uint64) string {
	return fmt.Sprintf("sub_%x", addr)
}

// Disassemble decodes code at base and splits it into blocks.
func Disassemble(code []byte, base uint64, arch Arch) (Listing, error) {
	insts, err := Decode(code, base, arch)
	if err != nil {
		return Listing{}, err
	}
	return Split(insts), nil
}

// Split groups an address-ordered instruction stream into basic blocks.
// Branches leaving the decoded range are treated as tail calls.
func Split(insts []Inst) Listing {
	if len(insts) == 0 {
		return Listing{}
	}

	at := make(map[uint64]int, len(insts))
	for i, in := range insts {
		at[in.Address] = i
	}

	leader := make([]bool, len(insts))
	leader[0] = true
	var callees []string
	for i, in := range insts {
		if in.Flow.Ends() && i+1 < len(insts) {
			leader[i+1] = true
		}
		if !in.HasTarget {
			continue
		}
		j, inside := at[in.Target]
		switch {
		case in.Flow == FlowCall:
			callees = append(callees, CalleeName(in.Target))
		case inside:
			leader[j] = true
		case in.Flow == FlowJump:
			callees = append(callees, CalleeName(in.Target))
		}
	}

	var (
		blocks  []model.Block
		blockOf = make([]int, len(insts))
	)
	for i, in := range insts {
		if leader[i] {
			blocks = append(blocks, model.Block{Address: in.Address})
		}
		b := len(blocks) - 1
		blockOf[i] = b
		blocks[b].Instructions = append(blocks[b].Instructions, model.Instruction{
			Address:  in.Address,
			Mnemonic: in.Mnemonic,
			Operands: in.Operands,
		})
	}

	var edges []model.Edge
	for i, in := range insts {
		last := i+1 == len(insts) || leader[i+1]
		if !last {
			continue
		}
		from := blockOf[i]
		if in.HasTarget && (in.Flow == FlowJump || in.Flow == FlowCondJump) {
			if j, ok := at[in.Target]; ok {
				edges = append(edges, model.Edge{From: from, To: blockOf[j]})
			}
		}
		fallsThrough := in.Flow != FlowJump && in.Flow != FlowIndirectJump && in.Flow != FlowReturn
		if fallsThrough && i+1 < len(insts) {
			edges = append(edges, model.Edge{From: from, To: blockOf[i+1]})
		}
	}

	slices.Sort(callees)
	return Listing{
		Blocks:  blocks,
		Edges:   edges,
		Callees: slices.Compact(callees),
	}
}
