// Package disasm turns raw machine code into the normalized listing the
// matcher works on: instructions grouped into basic blocks, intra-function
// control-flow edges and direct call targets.
//
// Decoding is linear from the function's entry. Bytes that do not decode are
// skipped. Block leaders are the entry, every in-range branch target and the
// instruction after any branch or return.
package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Arch is a supported instruction set.
type Arch string

// Supported architectures.
const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

// ParseArch accepts the common spellings of the supported architectures.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amd64", "x86_64", "x86-64", "x64":
		return ArchAMD64, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %q", s)
	}
}

// Flow classifies how an instruction transfers control.
type Flow int

// Control-flow kinds.
const (
	FlowNone Flow = iota
	FlowJump
	FlowCondJump
	FlowIndirectJump
	FlowCall
	FlowReturn
)

// Ends reports whether an instruction of this kind terminates a basic block.
func (f Flow) Ends() bool {
	return f == FlowJump || f == FlowCondJump || f == FlowIndirectJump || f == FlowReturn
}

// Inst is one decoded instruction.
type Inst struct {
	Address  uint64
	Len      int
	Mnemonic string
	Operands []string
	Flow     Flow
	// Target is the resolved destination of a direct branch or call.
	Target    uint64
	HasTarget bool
}

// Decode linearly disassembles code located at base.
func Decode(code []byte, base uint64, arch Arch) ([]Inst, error) {
	switch arch {
	case ArchAMD64:
		return decodeAMD64(code, base), nil
	case ArchARM64:
		return decodeARM64(code, base), nil
	default:
		return nil, fmt.Errorf("unsupported architecture: %s", arch)
	}
}

func decodeAMD64(code []byte, base uint64) []Inst {
	var out []Inst
	offset := 0
	for offset < len(code) {
		addr := base + uint64(offset)

		// x86asm does not know the CET markers.
		if offset+4 <= len(code) &&
			code[offset] == 0xf3 && code[offset+1] == 0x0f &&
			code[offset+2] == 0x1e && (code[offset+3] == 0xfa || code[offset+3] == 0xfb) {
			mn := "endbr64"
			if code[offset+3] == 0xfb {
				mn = "endbr32"
			}
			out = append(out, Inst{Address: addr, Len: 4, Mnemonic: mn})
			offset += 4
			continue
		}

		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil || inst.Len == 0 {
			offset++
			continue
		}

		d := Inst{
			Address:  addr,
			Len:      inst.Len,
			Mnemonic: strings.ToLower(inst.Op.String()),
		}
		for _, arg := range inst.Args {
			if arg == nil {
				break
			}
			d.Operands = append(d.Operands, strings.ToLower(arg.String()))
		}

		rel, isRel := inst.Args[0].(x86asm.Rel)
		target := addr + uint64(inst.Len) + uint64(int64(rel))
		op := inst.Op.String()
		switch {
		case inst.Op == x86asm.CALL:
			d.Flow = FlowCall
			d.Target, d.HasTarget = target, isRel
		case inst.Op == x86asm.JMP:
			// Op JMP is always unconditional; conditional jumps have their own ops.
			if isRel {
				d.Flow = FlowJump
				d.Target, d.HasTarget = target, true
			} else {
				d.Flow = FlowIndirectJump
			}
		case strings.HasPrefix(op, "J") || strings.HasPrefix(op, "LOOP"):
			d.Flow = FlowCondJump
			d.Target, d.HasTarget = target, isRel
		case inst.Op == x86asm.RET || isTerminalAMD64(op):
			d.Flow = FlowReturn
		}

		out = append(out, d)
		offset += inst.Len
	}
	return out
}

func isTerminalAMD64(op string) bool {
	switch op {
	case "LRET", "IRET", "IRETD", "IRETQ", "HLT", "UD2", "UD1", "UD0":
		return true
	}
	return false
}

func decodeARM64(code []byte, base uint64) []Inst {
	const insnLen = 4

	var out []Inst
	for offset := 0; offset+insnLen <= len(code); offset += insnLen {
		inst, err := arm64asm.Decode(code[offset : offset+insnLen])
		if err != nil {
			continue
		}
		addr := base + uint64(offset)

		d := Inst{
			Address:  addr,
			Len:      insnLen,
			Mnemonic: strings.ToLower(inst.Op.String()),
		}

		var (
			pcrel   arm64asm.PCRel
			hasRel  bool
			hasCond bool
		)
		for _, arg := range inst.Args {
			if arg == nil {
				break
			}
			d.Operands = append(d.Operands, strings.ToLower(arg.String()))
			switch a := arg.(type) {
			case arm64asm.PCRel:
				pcrel, hasRel = a, true
			case arm64asm.Cond:
				hasCond = true
			}
		}
		target := addr + uint64(int64(pcrel))

		switch inst.Op {
		case arm64asm.BL:
			d.Flow = FlowCall
			d.Target, d.HasTarget = target, hasRel
		case arm64asm.B:
			d.Flow = FlowJump
			if hasCond {
				d.Flow = FlowCondJump
				d.Mnemonic = "b." + strings.ToLower(condOf(inst))
			}
			d.Target, d.HasTarget = target, hasRel
		default:
			switch inst.Op.String() {
			case "CBZ", "CBNZ", "TBZ", "TBNZ":
				d.Flow = FlowCondJump
				d.Target, d.HasTarget = target, hasRel
			case "BLR":
				d.Flow = FlowCall
			case "BR":
				d.Flow = FlowIndirectJump
			case "RET", "ERET", "BRK", "UDF":
				d.Flow = FlowReturn
			}
		}

		out = append(out, d)
	}
	return out
}

func condOf(inst arm64asm.Inst) string {
	for _, arg := range inst.Args {
		if c, ok := arg.(arm64asm.Cond); ok {
			return c.String()
		}
	}
	return ""
}
