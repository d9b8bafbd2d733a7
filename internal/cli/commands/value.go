package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// NewValueCommand creates the value command.
func NewValueCommand() *cobra.Command {
	flags := &ParseFlags{}

	cmd := &cobra.Command{
		Use:   "value <log-file> <field> <time>",
		Short: "Print a field's value at a time",
		Long: `Print the value a field held at a relative time in seconds: the latest
sample at or before that time. Pose components are addressed as <field>.x
and <field>.y.

Exit codes:
  0 - Value found
  1 - Field has no sample at or before the time
  2 - Usage or runtime error`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValue(cmd.OutOrStdout(), args, flags)
		},
	}

	addParseFlags(cmd, flags)
	return cmd
}

func runValue(w io.Writer, args []string, flags *ParseFlags) error {
	path, field := args[0], args[1]
	t, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", args[2], err)
	}

	res, err := flags.parseLog(path)
	if err != nil {
		return err
	}

	values := timeseries.ValuesAtTime(res.Data.Entries, []string{field}, t)
	v, ok := values[field]
	if !ok {
		ExitCode = 1
		_, err := fmt.Fprintf(w, "%s @ %gs: no value\n", field, t)
		return err
	}
	_, err = fmt.Fprintf(w, "%s @ %gs = %s\n", field, t, v.String())
	return err
}
