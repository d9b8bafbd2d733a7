package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotlog-visualizer/backend/internal/parser"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ParseFlags holds the parser flags shared by every command that reads a log.
type ParseFlags struct {
	Format     string
	SortByTime bool
}

func addParseFlags(cmd *cobra.Command, f *ParseFlags) {
	cmd.Flags().StringVar(&f.Format, "format", parser.FormatAuto, "Log format (auto|info_pair|flat)")
	cmd.Flags().BoolVar(&f.SortByTime, "sort", false, "Sort entries by time after parsing")
}

// parseLog parses the file at path with the selected flags.
func (f *ParseFlags) parseLog(path string) (*parser.Result, error) {
	opts := []parser.Option{parser.WithSortByTime(f.SortByTime)}
	if f.Format != "" && !strings.EqualFold(f.Format, parser.FormatAuto) {
		if _, err := parser.NewRegistry().GetFormatByName(f.Format); err != nil {
			return nil, err
		}
		opts = append(opts, parser.WithFormat(f.Format))
	}

	res, err := parser.New(opts...).ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return res, nil
}
