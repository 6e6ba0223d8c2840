// Package explain renders side-by-side evidence for a matched pair: the
// unified diff of both functions' instruction listings and their line
// similarity ratio.
package explain

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/coral-mesh/bindiff/internal/model"
)

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

// Listing renders f one instruction per line, with a label line before each
// block. Addresses are omitted so that relocated code compares equal.
// Every line ends in a newline.
func Listing(f *model.Function) []string {
	var lines []string
	if len(f.Blocks()) == 0 {
		for _, m := range f.Mnemonics() {
			lines = append(lines, "  "+m+"\n")
		}
		return lines
	}

	succ := make(map[int][]int)
	for _, e := range f.Edges() {
		succ[e.From] = append(succ[e.From], e.To)
	}
	for i, b := range f.Blocks() {
		lines = append(lines, blockLabel(i, succ[i]))
		for _, ins := range b.Instructions {
			line := "  " + ins.Mnemonic
			if len(ins.Operands) > 0 {
				line += " " + strings.Join(ins.Operands, ", ")
			}
			lines = append(lines, line+"\n")
		}
	}
	return lines
}

func blockLabel(i int, succ []int) string {
	if len(succ) == 0 {
		return fmt.Sprintf("bb%d:\n", i)
	}
	targets := make([]string, len(succ))
	for k, s := range succ {
		targets[k] = fmt.Sprintf("bb%d", s)
	}
	return fmt.Sprintf("bb%d: -> %s\n", i, strings.Join(targets, ", "))
}

// Unified returns the unified diff of the listings of a and b. It is empty
// when the listings are identical.
func Unified(a, b *model.Function, context int) (string, error) {
	if context <= 0 {
		context = DefaultContext
	}
	u := difflib.UnifiedDiff{
		A:        Listing(a),
		B:        Listing(b),
		FromFile: fmt.Sprintf("%s/%s", a.BinaryID(), a.Label()),
		ToFile:   fmt.Sprintf("%s/%s", b.BinaryID(), b.Label()),
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("failed to diff listings: %w", err)
	}
	return s, nil
}

// Ratio is the sequence-matcher similarity of the two listings in [0,1].
func Ratio(a, b *model.Function) float64 {
	return difflib.NewMatcher(Listing(a), Listing(b)).Ratio()
}
