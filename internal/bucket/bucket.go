// Package bucket groups functions by coarse size features so the fuzzy phase
// only compares functions in the same or an adjacent bucket.
package bucket

import (
	"cmp"
	"slices"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Widths are the bucket sizes along each feature axis.
type Widths struct {
	Instructions int
	Blocks       int
}

// Key addresses one bucket.
type Key struct {
	Instructions int
	Blocks       int
}

// Compare orders keys by instruction range, then block range.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Instructions, o.Instructions); c != 0 {
		return c
	}
	return cmp.Compare(k.Blocks, o.Blocks)
}

// KeyOf returns the bucket of a function with counts c.
func (w Widths) KeyOf(c model.Counts) Key {
	return Key{
		Instructions: c.Instructions / max(w.Instructions, 1),
		Blocks:       c.Blocks / max(w.Blocks, 1),
	}
}

// Index maps bucket keys to member ids. Ids are opaque to the index and
// usually positions in a caller-owned slice.
type Index struct {
	widths  Widths
	buckets map[Key][]int
	size    int
}

// New creates an empty index.
func New(w Widths) *Index {
	return &Index{widths: w, buckets: make(map[Key][]int)}
}

// Widths returns the index's bucket widths.
func (ix *Index) Widths() Widths { return ix.widths }

// Add files id under the bucket of counts c and returns the key used.
func (ix *Index) Add(c model.Counts, id int) Key {
	k := ix.widths.KeyOf(c)
	ix.buckets[k] = append(ix.buckets[k], id)
	ix.size++
	return k
}

// Len returns the number of ids added.
func (ix *Index) Len() int { return ix.size }

// Keys returns the non-empty bucket keys in ascending order.
func (ix *Index) Keys() []Key {
	keys := make([]Key, 0, len(ix.buckets))
	for k := range ix.buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}

// Get returns the ids in bucket k in insertion order.
func (ix *Index) Get(k Key) []int {
	return ix.buckets[k]
}

// Neighbors returns the ids in bucket k and its eight adjacent buckets,
// sorted ascending.
func (ix *Index) Neighbors(k Key) []int {
	var out []int
	for di := -1; di <= 1; di++ {
		for db := -1; db <= 1; db++ {
			n := Key{Instructions: k.Instructions + di, Blocks: k.Blocks + db}
			if n.Instructions < 0 || n.Blocks < 0 {
				continue
			}
			out = append(out, ix.buckets[n]...)
		}
	}
	slices.Sort(out)
	return out
}
