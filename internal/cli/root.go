package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configcmd "github.com/coral-mesh/bindiff/internal/cli/config"
	"github.com/coral-mesh/bindiff/internal/cli/diff"
	"github.com/coral-mesh/bindiff/internal/cli/explain"
	"github.com/coral-mesh/bindiff/internal/cli/helpers"
	"github.com/coral-mesh/bindiff/internal/constants"
	"github.com/coral-mesh/bindiff/internal/hostio"
	"github.com/coral-mesh/bindiff/pkg/version"
)

// NewRootCmd builds the bindiff command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bindiff",
		Short: "bindiff - match functions between two versions of a binary",
		Long: `Match the functions of two disassembled binaries.

bindiff reads the function exports of two binaries, normalizes every function
into basic blocks, control-flow edges and mnemonics, then pairs functions in
six phases of decreasing reliability:

- exact:      identical control-flow graph and instruction stream
- name:       same non-generated symbol name
- md-index:   same weighted graph-shape index
- spp:        same small-primes product of mnemonics
- structural: isomorphic or near-isomorphic control-flow graphs
- fuzzy:      best bucketed Jaccard, cosine and edit-distance blend

A function is paired at most once; later phases only see what earlier phases
left unmatched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(helpers.FlagConfig, "", fmt.Sprintf("Config file (default ~/%s/%s)", constants.DefaultDir, constants.ConfigFile))
	flags.String(helpers.FlagLogLevel, "info", "Log level (trace, debug, info, warn, error, disabled)")
	flags.Bool(helpers.FlagLogJSON, false, "Emit logs as JSON instead of console text")

	rootCmd.AddCommand(diff.NewDiffCmd())
	rootCmd.AddCommand(explain.NewExplainCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if format == string(helpers.FormatTable) {
				cmd.Printf("bindiff version %s\n", info.Version)
				cmd.Printf("Git commit: %s\n", info.GitCommit)
				cmd.Printf("Build date: %s\n", info.BuildDate)
				cmd.Printf("Go version: %s\n", info.GoVersion)
				cmd.Printf("Platform: %s\n", info.Platform)
				return nil
			}
			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(info, cmd.OutOrStdout())
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatYAML,
	})

	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the function export format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hostio.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel a running diff.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
