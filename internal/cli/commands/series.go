package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// SeriesOptions holds command-line options for the series command.
type SeriesOptions struct {
	ParseFlags
	Output string
}

// NewSeriesCommand creates the series command.
func NewSeriesCommand() *cobra.Command {
	opts := &SeriesOptions{}

	cmd := &cobra.Command{
		Use:   "series <log-file> <field>",
		Short: "Print the plotted samples of a field",
		Long: `Print every sample of a field in file order as the chart plots it.
Non-numeric values plot as 0; samples that failed to parse print as NaN in
CSV and null in JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	addParseFlags(cmd, &opts.ParseFlags)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "csv", "Output format (csv|json)")

	return cmd
}

func runSeries(w io.Writer, path, field string, opts *SeriesOptions) error {
	if opts.Output != "csv" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use csv or json)", opts.Output)
	}

	res, err := opts.parseLog(path)
	if err != nil {
		return err
	}
	points := timeseries.SeriesForField(res.Data.Entries, field)

	if opts.Output == "json" {
		if points == nil {
			points = []models.SeriesPoint{}
		}
		return json.NewEncoder(w).Encode(points)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", field}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Time, 'g', -1, 64),
			strconv.FormatFloat(p.Value, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
