// Package cli provides the command-line interface for logviz.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logviz",
		Short: "Inspect robot telemetry logs",
		Long: `logviz parses robot telemetry logs and answers the same queries the
visualizer uses: field listings, point-in-time values and plotted series.

Supported formats:
  info_pair  a clock line followed by INFO:name:type:value;... fields
  flat       h:mm:ss;type;name;value per line

Exit codes:
  0 - Success
  1 - Query found no value
  2 - Usage or runtime error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewFieldsCommand())
	rootCmd.AddCommand(commands.NewValueCommand())
	rootCmd.AddCommand(commands.NewSeriesCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
