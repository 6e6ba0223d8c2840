// Package vocab builds the per-run mnemonic vocabulary shared by both
// snapshots of a diff: a stable prime per mnemonic for small-primes products
// and a stable rune per mnemonic for edit-distance encoding.
package vocab

import (
	"math"
	"math/bits"
	"slices"
	"unicode/utf8"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Modulus bounds small-primes products. It is the Mersenne prime 2^61-1;
// products are reduced with 128-bit intermediates so they never overflow.
const Modulus uint64 = 1<<61 - 1

// runeBase is the first code point used for encoding; everything above it up
// to utf8.MaxRune is a valid non-surrogate rune.
const runeBase = 0x10000

// Vocabulary maps each mnemonic seen in either snapshot to a prime and a rune.
type Vocabulary struct {
	mnemonics []string
	index     map[string]int
	primes    []uint64
}

// Build collects the sorted union of mnemonics of every function in snapshots.
func Build(snapshots ...*model.Snapshot) *Vocabulary {
	seen := make(map[string]struct{})
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		for _, f := range s.Functions() {
			for _, h := range f.Histogram() {
				seen[h.Mnemonic] = struct{}{}
			}
		}
	}

	mnemonics := make([]string, 0, len(seen))
	for m := range seen {
		mnemonics = append(mnemonics, m)
	}
	slices.Sort(mnemonics)

	index := make(map[string]int, len(mnemonics))
	for i, m := range mnemonics {
		index[m] = i
	}

	return &Vocabulary{
		mnemonics: mnemonics,
		index:     index,
		primes:    FirstPrimes(len(mnemonics)),
	}
}

// Len returns the number of distinct mnemonics.
func (v *Vocabulary) Len() int { return len(v.mnemonics) }

// Mnemonics returns the sorted vocabulary. Read-only.
func (v *Vocabulary) Mnemonics() []string { return v.mnemonics }

// Prime returns the prime assigned to m.
func (v *Vocabulary) Prime(m string) (uint64, bool) {
	i, ok := v.index[m]
	if !ok {
		return 0, false
	}
	return v.primes[i], true
}

// Rune returns the code point assigned to m. Unknown mnemonics map to
// utf8.MaxRune, which no known mnemonic uses.
func (v *Vocabulary) Rune(m string) rune {
	i, ok := v.index[m]
	if !ok || runeBase+i >= utf8.MaxRune {
		return utf8.MaxRune
	}
	return rune(runeBase + i)
}

// Encode maps a mnemonic sequence to one rune per mnemonic.
func (v *Vocabulary) Encode(mnemonics []string) []rune {
	out := make([]rune, len(mnemonics))
	for i, m := range mnemonics {
		out[i] = v.Rune(m)
	}
	return out
}

// Signature computes the small-primes product of a histogram modulo Modulus.
// reduced reports whether the exact product exceeded the modulus at any step.
// Mnemonics outside the vocabulary are ignored.
func (v *Vocabulary) Signature(hist []model.MnemonicCount) (sig uint64, reduced bool) {
	sig = 1
	for _, h := range hist {
		p, ok := v.Prime(h.Mnemonic)
		if !ok {
			continue
		}
		for c := 0; c < h.Count; c++ {
			var r bool
			sig, r = MulMod(sig, p, Modulus)
			reduced = reduced || r
		}
	}
	return sig, reduced
}

// MulMod returns a*b mod m using a 128-bit intermediate. reduced is true when
// a*b >= m, i.e. the modular reduction changed the value.
func MulMod(a, b, m uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi == 0 && lo < m {
		return lo, false
	}
	return bits.Rem64(hi, lo, m), true
}

// FirstPrimes returns the first n primes in increasing order.
func FirstPrimes(n int) []uint64 {
	if n <= 0 {
		return nil
	}

	limit := 15
	if n >= 6 {
		fn := float64(n)
		limit = int(fn*(math.Log(fn)+math.Log(math.Log(fn)))) + 1
	}

	for {
		primes := sieve(limit, n)
		if len(primes) >= n {
			return primes[:n]
		}
		limit *= 2
	}
}

func sieve(limit, want int) []uint64 {
	composite := make([]bool, limit+1)
	primes := make([]uint64, 0, want)
	for i := 2; i <= limit && len(primes) < want; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, uint64(i))
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return primes
}
