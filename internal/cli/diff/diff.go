// Package diff implements the 'bindiff diff' command.
package diff

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/bindiff/internal/cli/helpers"
	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/engine"
	"github.com/coral-mesh/bindiff/internal/model"
)

var supportedFormats = []helpers.OutputFormat{
	helpers.FormatTable,
	helpers.FormatJSON,
	helpers.FormatYAML,
	helpers.FormatCSV,
}

type options struct {
	format    string
	output    string
	unmatched bool
	verbose   bool
}

// NewDiffCmd creates the diff command.
func NewDiffCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "diff <export-a> <export-b>",
		Short: "Match the functions of two binaries",
		Long: `Match every function of binary A against binary B.

Both arguments are function exports (JSON or YAML) written by the host
analysis platform. Functions are matched in six phases, most reliable first:
exact, name, md-index, spp, structural and fuzzy. Each function is paired at
most once.

Tuning flags override the config file and BINDIFF_* environment variables.`,
		Example: `  bindiff diff libfoo-1.0.json libfoo-1.1.json
  bindiff diff old.yaml new.yaml -o json --output-file report.json
  bindiff diff a.json b.json --similarity-threshold 0.7 --unmatched`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1], opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	helpers.AddFormatFlag(cmd, &opts.format, helpers.FormatTable, supportedFormats)
	helpers.AddVerboseFlag(cmd, &opts.verbose)
	cmd.Flags().StringVar(&opts.output, "output-file", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.unmatched, "unmatched", false, "List unmatched functions in table output")

	return cmd
}

func run(cmd *cobra.Command, pathA, pathB string, opts options) error {
	if err := helpers.ValidateFormat(opts.format, supportedFormats); err != nil {
		return err
	}

	s, err := helpers.NewSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, b, err := s.LoadPair(ctx, pathA, pathB)
	if err != nil {
		return err
	}

	var progress func(engine.ProgressEvent)
	if opts.verbose {
		progress = func(ev engine.ProgressEvent) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%-10s processed %d/%d matched %-5d remaining %d/%d (%s)\n",
				ev.Phase, ev.ProcessedA, ev.ProcessedB, ev.Matched, ev.RemainingA, ev.RemainingB, ev.Elapsed.Round(time.Microsecond))
		}
	}

	set, err := s.Engine(progress).Diff(ctx, a, b, *s.Config)
	if err != nil {
		return err
	}

	report := NewReport(a, b, set)
	return helpers.WriteOutput(s.Logger, cmd.OutOrStdout(), opts.output, func(w io.Writer) error {
		return write(w, report, helpers.OutputFormat(opts.format), opts.unmatched)
	})
}

func write(w io.Writer, r *Report, format helpers.OutputFormat, unmatched bool) error {
	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}

	switch format {
	case helpers.FormatJSON, helpers.FormatYAML:
		return formatter.Format(r, w)
	case helpers.FormatCSV:
		return formatter.Format(r.Matches, w)
	}

	if err := formatter.Format(r.Matches, w); err != nil {
		return err
	}
	if unmatched {
		rows := append(append([]FunctionRow{}, r.UnmatchedA...), r.UnmatchedB...)
		if len(rows) > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			if err := formatter.Format(rows, w); err != nil {
				return err
			}
		}
	}
	return writeSummary(w, r)
}

func writeSummary(w io.Writer, r *Report) error {
	st := r.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s -> %s: matched %d of %d/%d functions, overall similarity %.3f\n",
		r.BinaryA, r.BinaryB, st.Matched, st.TotalA, st.TotalB, st.OverallSimilarity)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tMATCHED\tAVG SIMILARITY\tAVG CONFIDENCE")
	for _, t := range model.MatchTypes() {
		ts := st.PerType[t]
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\n", t, ts.Count, ts.AvgSimilarity, ts.AvgConfidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Rejected) > 0 {
		fmt.Fprintf(&b, "\n%d malformed functions skipped\n", len(r.Rejected))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
