package model

import (
	"encoding/binary"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// wlRounds is the number of neighbourhood refinement rounds folded into the
// structural hash.
const wlRounds = 3

// MDWeights are the coefficients of the metadata index. The defaults use
// square roots of distinct primes so that different count tuples rarely
// collapse onto the same value.
type MDWeights struct {
	Blocks       float64 `yaml:"blocks" json:"blocks" env:"BINDIFF_MD_WEIGHT_BLOCKS"`
	Edges        float64 `yaml:"edges" json:"edges" env:"BINDIFF_MD_WEIGHT_EDGES"`
	InDegree     float64 `yaml:"in_degree" json:"in_degree" env:"BINDIFF_MD_WEIGHT_IN_DEGREE"`
	OutDegree    float64 `yaml:"out_degree" json:"out_degree" env:"BINDIFF_MD_WEIGHT_OUT_DEGREE"`
	Instructions float64 `yaml:"instructions" json:"instructions" env:"BINDIFF_MD_WEIGHT_INSTRUCTIONS"`
}

// DefaultMDWeights returns the fixed default metadata-index weights.
func DefaultMDWeights() MDWeights {
	return MDWeights{
		Blocks:       math.Sqrt2,
		Edges:        math.Sqrt(3),
		InDegree:     math.Sqrt(5),
		OutDegree:    math.Sqrt(7),
		Instructions: math.Sqrt(11),
	}
}

// MetadataIndex combines structural counts into a single comparable value.
func MetadataIndex(c Counts, w MDWeights) float64 {
	return w.Blocks*float64(c.Blocks) +
		w.Edges*float64(c.Edges) +
		w.InDegree*float64(c.InDegree) +
		w.OutDegree*float64(c.OutDegree) +
		w.Instructions*float64(c.Instructions)
}

// structuralHash canonicalizes the CFG by iterated neighbourhood relabelling.
// Initial labels hash each block's mnemonic sequence and whether it is the
// entry; block and edge order and absolute addresses do not contribute.
func structuralHash(f *Function) uint64 {
	n := len(f.blocks)
	succ := make([][]int, n)
	pred := make([][]int, n)
	for _, e := range f.edges {
		succ[e.From] = append(succ[e.From], e.To)
		pred[e.To] = append(pred[e.To], e.From)
	}

	labels := make([]uint64, n)
	var buf []byte
	for i, b := range f.blocks {
		buf = buf[:0]
		if i == f.entry {
			buf = append(buf, 'E')
		}
		for _, ins := range b.Instructions {
			buf = append(buf, ins.Mnemonic...)
			buf = append(buf, 0)
		}
		labels[i] = xxh3.Hash(buf)
	}

	next := make([]uint64, n)
	var neigh []uint64
	for round := 0; round < wlRounds; round++ {
		for i := range labels {
			buf = binary.LittleEndian.AppendUint64(buf[:0], labels[i])

			neigh = neigh[:0]
			for _, s := range succ[i] {
				neigh = append(neigh, labels[s])
			}
			slices.Sort(neigh)
			buf = append(buf, '>')
			for _, v := range neigh {
				buf = binary.LittleEndian.AppendUint64(buf, v)
			}

			neigh = neigh[:0]
			for _, p := range pred[i] {
				neigh = append(neigh, labels[p])
			}
			slices.Sort(neigh)
			buf = append(buf, '<')
			for _, v := range neigh {
				buf = binary.LittleEndian.AppendUint64(buf, v)
			}
			next[i] = xxh3.Hash(buf)
		}
		labels, next = next, labels
	}

	final := slices.Clone(labels)
	slices.Sort(final)
	buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(n))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(f.edges)))
	for _, v := range final {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return xxh3.Hash(buf)
}

// callGraphHash digests caller/callee degrees and the sorted callee names.
// Callees that are only addresses collapse to a placeholder because absolute
// addresses shift between builds.
func callGraphHash(callers, callees []string) uint64 {
	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(callers)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(callees)))

	tokens := make([]string, 0, len(callees))
	for _, c := range callees {
		if IsAddressLike(c) {
			tokens = append(tokens, "@")
			continue
		}
		tokens = append(tokens, c)
	}
	slices.Sort(tokens)
	for _, t := range tokens {
		buf = append(buf, t...)
		buf = append(buf, 0)
	}
	return xxh3.Hash(buf)
}

// IsAddressLike reports whether ref names a location rather than a symbol,
// e.g. "0x401000", "sub_401000", "loc_1234" or a bare number.
func IsAddressLike(ref string) bool {
	s := strings.ToLower(strings.TrimSpace(ref))
	if s == "" {
		return true
	}
	for _, prefix := range []string{"0x", "sub_", "loc_", "fcn.", "j_sub_"} {
		if strings.HasPrefix(s, prefix) {
			rest := strings.TrimPrefix(s, prefix)
			_, err := strconv.ParseUint(rest, 16, 64)
			return err == nil
		}
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func hexAddr(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}

// FuzzyWeights combine the three fuzzy metrics into one similarity score.
type FuzzyWeights struct {
	Jaccard      float64 `yaml:"jaccard" json:"jaccard" env:"BINDIFF_FUZZY_WEIGHT_JACCARD"`
	Cosine       float64 `yaml:"cosine" json:"cosine" env:"BINDIFF_FUZZY_WEIGHT_COSINE"`
	EditDistance float64 `yaml:"edit_distance" json:"edit_distance" env:"BINDIFF_FUZZY_WEIGHT_EDIT_DISTANCE"`
}

// DefaultFuzzyWeights returns the default fuzzy weighting.
func DefaultFuzzyWeights() FuzzyWeights {
	return FuzzyWeights{Jaccard: 0.4, Cosine: 0.3, EditDistance: 0.3}
}

// Sum returns the total weight.
func (w FuzzyWeights) Sum() float64 {
	return w.Jaccard + w.Cosine + w.EditDistance
}
