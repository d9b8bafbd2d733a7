package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	flags := &ParseFlags{}

	cmd := &cobra.Command{
		Use:   "fields <log-file>",
		Short: "List plottable fields",
		Long: `List the numeric fields of a log in first-seen order, followed by its
pose fields. Fields the viewer charts by default are marked with *.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(cmd.OutOrStdout(), args[0], flags)
		},
	}

	addParseFlags(cmd, flags)
	return cmd
}

func runFields(w io.Writer, path string, flags *ParseFlags) error {
	res, err := flags.parseLog(path)
	if err != nil {
		return err
	}

	selected := make(map[string]bool)
	for _, f := range timeseries.DefaultSelection(res.Data.NumericFields) {
		selected[f] = true
	}

	for _, f := range res.Data.NumericFields {
		mark := " "
		if selected[f] {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s numeric %s\n", mark, f); err != nil {
			return err
		}
	}
	for _, f := range res.Data.PoseFields {
		if _, err := fmt.Fprintf(w, "  pose    %s\n", f); err != nil {
			return err
		}
	}
	return nil
}
