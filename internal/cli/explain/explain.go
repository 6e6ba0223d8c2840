// Package explain implements the 'bindiff explain' command.
package explain

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/bindiff/internal/cli/helpers"
	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/engine"
	difftext "github.com/coral-mesh/bindiff/internal/explain"
	"github.com/coral-mesh/bindiff/internal/model"
)

type options struct {
	context    int
	candidates int
}

// NewExplainCmd creates the explain command.
func NewExplainCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "explain <export-a> <export-b> <addr-a> [addr-b]",
		Short: "Explain how one function was matched",
		Long: `Show why a function of binary A was paired with a function of binary B.

The full diff is run and the match of <addr-a> is reported with its phase,
scores and a unified diff of both instruction listings. With [addr-b] the
listing diff is shown for that pair whether or not the diff paired them.

Addresses accept Go integer syntax (0x401000, 4198400).`,
		Example: `  bindiff explain old.json new.json 0x401000
  bindiff explain old.json new.json 0x401000 0x402000 --context 5
  bindiff explain old.json new.json 0x401000 --candidates 5`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().IntVar(&opts.context, "context", difftext.DefaultContext, "Lines of context in the listing diff")
	cmd.Flags().IntVar(&opts.candidates, "candidates", 0, "Also list the N best fuzzy candidates for addr-a")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts options) error {
	addrA, err := parseAddress(args[2])
	if err != nil {
		return err
	}
	var addrB uint64
	pinned := len(args) == 4
	if pinned {
		if addrB, err = parseAddress(args[3]); err != nil {
			return err
		}
	}

	s, err := helpers.NewSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, b, err := s.LoadPair(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fa, ok := a.Lookup(addrA)
	if !ok {
		return fmt.Errorf("%w: 0x%x in %s", engine.ErrFunctionNotFound, addrA, a.ID())
	}

	eng := s.Engine(nil)
	set, err := eng.Diff(ctx, a, b, *s.Config)
	if err != nil {
		return err
	}

	var cands []model.MatchCandidate
	if opts.candidates > 0 || !pinned {
		if cands, err = eng.MatchOne(ctx, a, b, addrA, *s.Config); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	result, matched := set.FindA(addrA)
	var fb *model.Function
	switch {
	case pinned:
		if fb, ok = b.Lookup(addrB); !ok {
			return fmt.Errorf("%w: 0x%x in %s", engine.ErrFunctionNotFound, addrB, b.ID())
		}
		matched = matched && result.B == fb
	case matched:
		fb = result.B
	case len(cands) > 0:
		fb = cands[0].B
	}

	if err := writeVerdict(out, fa, fb, result, matched); err != nil {
		return err
	}
	if fb != nil {
		if err := writeListingDiff(out, fa, fb, opts.context); err != nil {
			return err
		}
	}
	if opts.candidates > 0 {
		return writeCandidates(out, cands, opts.candidates)
	}
	return nil
}

func parseAddress(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

func writeVerdict(w io.Writer, fa, fb *model.Function, r model.MatchResult, matched bool) error {
	if !matched {
		if fb == nil {
			_, err := fmt.Fprintf(w, "%s is unmatched and has no fuzzy candidate\n", fa.Label())
			return err
		}
		_, err := fmt.Fprintf(w, "%s is not paired with %s\n", fa.Label(), fb.Label())
		return err
	}

	d := r.Details
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s -> %s\n", fa.Label(), fb.Label())
	fmt.Fprintf(tw, "Phase:\t%s\n", r.Type)
	fmt.Fprintf(tw, "Similarity:\t%.3f\n", r.Similarity)
	fmt.Fprintf(tw, "Confidence:\t%.3f\n", r.Confidence)
	fmt.Fprintf(tw, "Blocks:\t%.3f\n", d.BlockSimilarity)
	fmt.Fprintf(tw, "Edges:\t%.3f\n", d.EdgeSimilarity)
	fmt.Fprintf(tw, "Instructions:\t%.3f\n", d.InstructionSimilarity)
	fmt.Fprintf(tw, "Calls:\t%.3f\n", d.CallSimilarity)
	fmt.Fprintf(tw, "Name:\t%.3f\n", d.NameSimilarity)
	if r.Type == model.MatchFuzzy {
		fmt.Fprintf(tw, "Jaccard:\t%.3f\n", d.Jaccard)
		fmt.Fprintf(tw, "Cosine:\t%.3f\n", d.Cosine)
		fmt.Fprintf(tw, "Edit:\t%.3f\n", d.EditSimilarity)
		fmt.Fprintf(tw, "Margin:\t%.3f\n", d.Margin)
	}
	if d.Discrepancies > 0 {
		fmt.Fprintf(tw, "Discrepancies:\t%d\n", d.Discrepancies)
	}
	return tw.Flush()
}

func writeListingDiff(w io.Writer, fa, fb *model.Function, context int) error {
	text, err := difftext.Unified(fa, fb, context)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\nListing ratio: %.3f\n", difftext.Ratio(fa, fb)); err != nil {
		return err
	}
	if text == "" {
		_, err = fmt.Fprintln(w, "Listings are identical")
		return err
	}
	_, err = io.WriteString(w, "\n"+text)
	return err
}

type candidateRow struct {
	Rank       int     `header:"RANK"`
	Address    string  `header:"ADDRESS B"`
	Name       string  `header:"NAME B"`
	Similarity float64 `header:"SIMILARITY"`
	Confidence float64 `header:"CONFIDENCE"`
	Margin     float64 `header:"MARGIN"`
}

func writeCandidates(w io.Writer, cands []model.MatchCandidate, n int) error {
	if _, err := fmt.Fprintln(w, "\nFuzzy candidates:"); err != nil {
		return err
	}
	if len(cands) == 0 {
		_, err := fmt.Fprintln(w, "  none above thresholds")
		return err
	}

	rows := make([]candidateRow, 0, min(n, len(cands)))
	for i, c := range cands[:min(n, len(cands))] {
		rows = append(rows, candidateRow{
			Rank:       i + 1,
			Address:    fmt.Sprintf("0x%x", c.B.Address()),
			Name:       c.B.Name(),
			Similarity: c.Similarity,
			Confidence: c.Confidence,
			Margin:     c.Details.Margin,
		})
	}
	return (&helpers.TableFormatter{}).Format(rows, w)
}
