package extract

// RawInstruction is one instruction as exported by the host.
type RawInstruction struct {
	Address  uint64   `json:"address" yaml:"address"`
	Mnemonic string   `json:"mnemonic" yaml:"mnemonic"`
	Operands []string `json:"operands,omitempty" yaml:"operands,omitempty"`
}

// RawBlock is a basic block as exported by the host. Successors are block
// start addresses within the same function.
type RawBlock struct {
	Address      uint64           `json:"address" yaml:"address"`
	Instructions []RawInstruction `json:"instructions" yaml:"instructions"`
	Successors   []uint64         `json:"successors,omitempty" yaml:"successors,omitempty"`
}

// RawFunction is a function record handed in by the host analysis platform.
//
// A function carries one of three bodies, in order of preference: Blocks (a
// full CFG), Code with Arch (hex-encoded machine code decoded here), or a flat
// Instructions listing. A flat listing yields a degenerate function.
type RawFunction struct {
	Address uint64 `json:"address" yaml:"address"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`

	Blocks       []RawBlock       `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Instructions []RawInstruction `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Code         string           `json:"code,omitempty" yaml:"code,omitempty"`
	Arch         string           `json:"arch,omitempty" yaml:"arch,omitempty"`

	Callees []string `json:"callees,omitempty" yaml:"callees,omitempty"`
	Callers []string `json:"callers,omitempty" yaml:"callers,omitempty"`
}
