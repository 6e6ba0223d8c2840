// Package config implements the 'bindiff config' command family.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/bindiff/internal/cli/helpers"
	"github.com/coral-mesh/bindiff/internal/config"
	"github.com/coral-mesh/bindiff/internal/constants"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bindiff configuration",
		Long: `Manage bindiff configuration.

Configuration Priority:
  1. Command-line flags (highest)
  2. BINDIFF_* environment variables
  3. Config file
  4. Built-in defaults

Config File Location:
  1. --config flag
  2. BINDIFF_CONFIG environment variable
  3. ~/.bindiff/config.yaml`,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPathCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}

// newShowCmd creates the 'config show' command.
func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration a diff would run with, after layering the
config file, environment variables and any tuning flags given here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, showFormats); err != nil {
				return err
			}
			s, err := helpers.NewSession(cmd)
			if err != nil {
				return err
			}
			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(s.Config, cmd.OutOrStdout())
		},
	}

	config.RegisterFlags(cmd.Flags())
	helpers.AddFormatFlag(cmd, &format, helpers.FormatYAML, showFormats)

	return cmd
}

var showFormats = []helpers.OutputFormat{helpers.FormatYAML, helpers.FormatJSON}

// newInitCmd creates the 'config init' command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := loaderFor(cmd)
			path := loader.ConfigPath()
			if path == "" {
				return fmt.Errorf("no config path: set --config or %s", constants.ConfigEnvVar)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := loader.Save(config.DefaultDiffConfig()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

// newPathCmd creates the 'config path' command.
func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loaderFor(cmd).ConfigPath()
			if path == "" {
				path = "(none)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

// newValidateCmd creates the 'config validate' command.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a config file",
		Long: `Validate a config file, reporting every invalid setting at once.

Without an argument the resolved config file is validated. Environment
overrides are applied, as they would be for a diff.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loaderFor(cmd).ConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd.OutOrStdout(), path)
		},
	}
}

func runValidate(w io.Writer, path string) error {
	if path == "" {
		return fmt.Errorf("no config path: set --config or %s", constants.ConfigEnvVar)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := config.NewLayeredLoader().LoadDiffConfig(path, nil); err != nil {
		var verr *config.MultiValidationError
		if errors.As(err, &verr) {
			_, _ = fmt.Fprintf(w, "%s: invalid\n", path)
		}
		return err
	}

	_, err := fmt.Fprintf(w, "%s: valid\n", path)
	return err
}

func loaderFor(cmd *cobra.Command) *config.Loader {
	path, _ := cmd.Flags().GetString(helpers.FlagConfig)
	return config.NewLoader(path)
}
