// Package model defines the immutable data model shared by the matching engine.
//
// A Function is built once by NewFunction and never mutated afterwards: every
// digest (CFG structural hash, call-graph hash, metadata index, mnemonic
// histogram) is computed at construction time. Accessors that return slices
// hand out the backing storage, which callers must treat as read-only.
//
// A Snapshot is an address-ordered collection of Functions for one binary.
// A MatchSet is the result of a single diff invocation: an ordered list of
// MatchResults plus the residual unmatched functions of both snapshots.
package model
