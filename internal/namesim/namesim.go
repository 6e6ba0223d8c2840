// Package namesim scores how alike two function names are using a 64-bit
// SimHash over their identifier tokens.
//
// Names are split on namespace and punctuation delimiters and on camelCase
// boundaries, so "Parser::readHeader" and "parser_read_header_v2" share most
// of their tokens. The score feeds match details only and never decides a
// match.
package namesim

import (
	"math/bits"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/bindiff/internal/model"
)

// Fingerprint returns the SimHash of name. ok is false when the name has no
// tokens.
func Fingerprint(name string) (fp uint64, ok bool) {
	tokens := Tokenize(name)
	if len(tokens) == 0 {
		return 0, false
	}

	var votes [64]int
	for _, token := range tokens {
		h := xxh3.HashString(token)
		for bit := uint(0); bit < 64; bit++ {
			if h&(1<<bit) != 0 {
				votes[bit]++
			} else {
				votes[bit]--
			}
		}
	}

	for bit, v := range votes {
		if v > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp, true
}

// Similarity returns the cosine similarity of the ±1 SimHash vectors of a and
// b, clamped to [0,1]. Identical non-empty names score 1; a name without
// tokens scores 0 against anything.
func Similarity(a, b string) float64 {
	if a != "" && a == b {
		return 1
	}
	fa, okA := Fingerprint(a)
	fb, okB := Fingerprint(b)
	if !okA || !okB {
		return 0
	}

	hamming := bits.OnesCount64(fa ^ fb)
	cos := 1 - 2*float64(hamming)/64
	return max(cos, 0)
}

// Functions scores the names of two functions. Address-like placeholder names
// carry no signal and score 0.
func Functions(a, b *model.Function) float64 {
	if model.IsAddressLike(a.Name()) || model.IsAddressLike(b.Name()) {
		return 0
	}
	return Similarity(a.Name(), b.Name())
}

// Tokenize splits a symbol name into lower-case, de-duplicated tokens.
func Tokenize(name string) []string {
	// Split by delimiters before lowercasing to keep camelCase boundaries.
	parts := strings.FieldsFunc(name, func(r rune) bool {
		switch r {
		case '.', '/', '_', ' ', ',', ';', '(', ')', '*', '[', ']', ':', '<', '>', '@', '$', '~', '-', '&', '?':
			return true
		}
		return false
	})

	tokens := []string{}
	for _, part := range parts {
		tokens = append(tokens, splitCamelCase(part)...)
	}
	return deduplicate(tokens)
}

// splitCamelCase splits a camelCase or PascalCase string into words.
// Example: "readHeader" → ["read", "header"]
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var words []string
	lastIdx := 0
	for i := 1; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' && s[i-1] >= 'a' && s[i-1] <= 'z' {
			words = append(words, strings.ToLower(s[lastIdx:i]))
			lastIdx = i
		}
	}
	if lastIdx < len(s) {
		words = append(words, strings.ToLower(s[lastIdx:]))
	}
	return words
}

// deduplicate removes duplicate tokens while preserving order.
func deduplicate(tokens []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, token := range tokens {
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		result = append(result, token)
	}
	return result
}
