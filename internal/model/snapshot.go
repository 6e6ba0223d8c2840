package model

import (
	"cmp"
	"fmt"
	"slices"
)

// Snapshot is the address-ordered, address-unique set of functions of one binary.
type Snapshot struct {
	id        string
	functions []*Function
	index     map[uint64]int
	rejected  []*MalformedFunctionError
}

// NewSnapshot builds a snapshot. fns are sorted by address; a duplicate
// address is an error. rejected lists raw functions the adapter skipped.
func NewSnapshot(id string, fns []*Function, rejected []*MalformedFunctionError) (*Snapshot, error) {
	sorted := slices.Clone(fns)
	slices.SortFunc(sorted, func(a, b *Function) int {
		return cmp.Compare(a.address, b.address)
	})

	index := make(map[uint64]int, len(sorted))
	for i, f := range sorted {
		if _, dup := index[f.address]; dup {
			return nil, fmt.Errorf("snapshot %s: duplicate function address 0x%x", id, f.address)
		}
		index[f.address] = i
	}

	return &Snapshot{
		id:        id,
		functions: sorted,
		index:     index,
		rejected:  slices.Clone(rejected),
	}, nil
}

// ID returns the binary identifier.
func (s *Snapshot) ID() string { return s.id }

// Len returns the number of functions.
func (s *Snapshot) Len() int { return len(s.functions) }

// Functions returns the address-ordered functions. Read-only.
func (s *Snapshot) Functions() []*Function { return s.functions }

// At returns the i-th function in address order.
func (s *Snapshot) At(i int) *Function { return s.functions[i] }

// Lookup finds a function by address.
func (s *Snapshot) Lookup(addr uint64) (*Function, bool) {
	i, ok := s.index[addr]
	if !ok {
		return nil, false
	}
	return s.functions[i], true
}

// IndexOf returns the position of the function at addr, or -1.
func (s *Snapshot) IndexOf(addr uint64) int {
	i, ok := s.index[addr]
	if !ok {
		return -1
	}
	return i
}

// Rejected lists the raw functions skipped during normalization.
func (s *Snapshot) Rejected() []*MalformedFunctionError { return s.rejected }
