package helpers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// AddFormatFlag registers --format/-o on cmd with shell completion over
// supported. The value is checked by ValidateFormat when the command runs.
func AddFormatFlag(cmd *cobra.Command, target *string, def OutputFormat, supported []OutputFormat) {
	names := formatNames(supported)
	cmd.Flags().StringVarP(target, "format", "o", string(def),
		fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")))

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(names, cobra.ShellCompDirectiveNoFileComp))
}

// AddVerboseFlag registers --verbose/-v, which prints per-phase progress to stderr.
func AddVerboseFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVarP(target, "verbose", "v", false, "Print per-phase progress to stderr")
}

// ValidateFormat rejects a format outside supported.
func ValidateFormat(format string, supported []OutputFormat) error {
	if slices.Contains(supported, OutputFormat(format)) {
		return nil
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}
