// Package similarity implements the stateless metrics used by the fuzzy phase:
// Jaccard similarity over hashed instruction n-grams, cosine similarity over
// opcode histograms, and normalized edit distance over encoded mnemonic
// sequences. All functions are pure and safe for concurrent use.
package similarity

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/agext/levenshtein"
	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Jaccard returns |a ∩ b| / |a ∪ b| for two sorted, duplicate-free sets.
// Two empty sets are identical (1.0).
func Jaccard(a, b []uint64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	inter := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Cosine returns the cosine similarity of two opcode histograms sorted by
// mnemonic. Two empty histograms are identical (1.0); one empty histogram
// against a non-empty one scores 0.
func Cosine(a, b []model.MnemonicCount) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	var dot, normA, normB float64
	for _, x := range a {
		normA += float64(x.Count) * float64(x.Count)
	}
	for _, y := range b {
		normB += float64(y.Count) * float64(y.Count)
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Mnemonic == b[j].Mnemonic:
			dot += float64(a[i].Count) * float64(b[j].Count)
			i++
			j++
		case a[i].Mnemonic < b[j].Mnemonic:
			i++
		default:
			j++
		}
	}

	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// NormalizedEditDistance returns the Levenshtein distance between two encoded
// sequences divided by the longer length, in [0,1]. Two empty sequences have
// distance 0.
func NormalizedEditDistance(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	dist, _, _ := levenshtein.Calculate(a, b, 0, 1, 1, 1)
	return clamp01(float64(dist) / float64(longest))
}

// EditSimilarity is 1 - NormalizedEditDistance.
func EditSimilarity(a, b []rune) float64 {
	return 1 - NormalizedEditDistance(a, b)
}

// NGrams hashes every window of n consecutive tokens and returns the sorted,
// duplicate-free set of hashes. A sequence shorter than n yields one gram
// covering the whole sequence; an empty sequence yields none.
func NGrams(tokens []string, n int) []uint64 {
	if len(tokens) == 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	if len(tokens) < n {
		return []uint64{hashWindow(tokens)}
	}

	out := make([]uint64, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, hashWindow(tokens[i:i+n]))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func hashWindow(tokens []string) uint64 {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tokens)))
	for _, t := range tokens {
		buf = append(buf, t...)
		buf = append(buf, 0)
	}
	return xxh3.Hash(buf)
}

// Combine folds the three metrics into a weighted average.
func Combine(jaccard, cosine, edit float64, w model.FuzzyWeights) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}
	return clamp01((w.Jaccard*jaccard + w.Cosine*cosine + w.EditDistance*edit) / total)
}

// Ratio returns min/max of two counts, 1.0 when both are zero.
func Ratio(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1.0
	}
	if a == 0 || b == 0 {
		return 0
	}
	return float64(min(a, b)) / float64(max(a, b))
}

// MultisetOverlap returns the size of the histogram intersection divided by
// the larger total, i.e. how many mnemonics two functions share regardless of
// order.
func MultisetOverlap(a, b []model.MnemonicCount) float64 {
	totalA, totalB := 0, 0
	for _, x := range a {
		totalA += x.Count
	}
	for _, y := range b {
		totalB += y.Count
	}
	if totalA == 0 && totalB == 0 {
		return 1.0
	}

	shared := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Mnemonic == b[j].Mnemonic:
			shared += min(a[i].Count, b[j].Count)
			i++
			j++
		case a[i].Mnemonic < b[j].Mnemonic:
			i++
		default:
			j++
		}
	}
	return float64(shared) / float64(max(totalA, totalB))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
