package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/parser"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	ParseFlags
	Output      string
	Diagnostics bool
}

// parseSummary is the JSON shape of the parse command.
type parseSummary struct {
	File          string              `json:"file"`
	Format        string              `json:"format"`
	Entries       int                 `json:"entries"`
	Fields        int                 `json:"fields"`
	NumericFields []string            `json:"numericFields"`
	PoseFields    []string            `json:"poseFields"`
	MaxTime       float64             `json:"maxTime"`
	Skipped       int                 `json:"skipped"`
	Diagnostics   []models.ParseError `json:"diagnostics,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <log-file>",
		Short: "Parse a log and summarize it",
		Long: `Parse a log file and print its format, entry count, plottable fields
and time range. With --diagnostics every skipped line or field is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.OutOrStdout(), args[0], opts)
		},
	}

	addParseFlags(cmd, &opts.ParseFlags)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Diagnostics, "diagnostics", false, "List skipped lines and fields")

	return cmd
}

func runParse(w io.Writer, path string, opts *ParseOptions) error {
	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	res, err := opts.parseLog(path)
	if err != nil {
		return err
	}

	summary := summarize(path, res)
	if opts.Diagnostics {
		summary.Diagnostics = res.Skipped
	}

	if opts.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return writeSummaryText(w, summary)
}

func summarize(path string, res *parser.Result) parseSummary {
	d := res.Data
	return parseSummary{
		File:          path,
		Format:        res.Format,
		Entries:       len(d.Entries),
		Fields:        d.FieldCount(),
		NumericFields: d.NumericFields,
		PoseFields:    d.PoseFields,
		MaxTime:       d.MaxTime,
		Skipped:       len(res.Skipped),
	}
}

func writeSummaryText(w io.Writer, s parseSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "File:           %s\n", s.File)
	fmt.Fprintf(&b, "Format:         %s\n", s.Format)
	fmt.Fprintf(&b, "Entries:        %d\n", s.Entries)
	fmt.Fprintf(&b, "Fields:         %d\n", s.Fields)
	fmt.Fprintf(&b, "Numeric fields: %s\n", joinOrNone(s.NumericFields))
	fmt.Fprintf(&b, "Pose fields:    %s\n", joinOrNone(s.PoseFields))
	fmt.Fprintf(&b, "Duration:       %.3fs\n", s.MaxTime)
	fmt.Fprintf(&b, "Skipped:        %d\n", s.Skipped)

	if len(s.Diagnostics) > 0 {
		b.WriteString("\nDiagnostics:\n")
		for _, d := range s.Diagnostics {
			fmt.Fprintf(&b, "  line %d: %s: %s\n", d.Line, d.Reason, d.Content)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
