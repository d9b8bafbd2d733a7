package parser

import (
	"regexp"
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// FlatFormat handles one record per line.
// Format: "h:mm:ss[ AM|PM];type;name;value"
type FlatFormat struct {
	lineRegex *regexp.Regexp
}

func NewFlatFormat() *FlatFormat {
	return &FlatFormat{
		lineRegex: regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}(?:\.\d+)?(?:\s*[AaPp][Mm])?\s*;[^;]*;[^;]*;`),
	}
}

func (f *FlatFormat) Name() string {
	return "flat"
}

func (f *FlatFormat) CanParse(sample []Line) bool {
	checked := 0
	matched := 0
	for _, l := range sample {
		checked++
		if f.lineRegex.MatchString(l.Text) {
			matched++
		}
	}
	return checked > 0 && float64(matched)/float64(checked) >= 0.6
}

func (f *FlatFormat) Records(lines []Line) ([]Record, []*models.ParseError) {
	records := make([]Record, 0, len(lines))
	errors := make([]*models.ParseError, 0)

	for _, l := range lines {
		cols := strings.Split(l.Text, ";")
		if len(cols) < 4 {
			errors = append(errors, &models.ParseError{Line: l.Num, Content: l.Text, Reason: "line is not timestamp;type;name;value"})
			continue
		}

		label := strings.TrimSpace(cols[0])
		secs, ok := ClockSeconds(label)
		if !ok {
			errors = append(errors, &models.ParseError{Line: l.Num, Content: l.Text, Reason: "invalid timestamp"})
			continue
		}

		records = append(records, Record{
			Line:    l.Num,
			Label:   label,
			Seconds: secs,
			Fields: []RawField{{
				Line:  l.Num,
				Text:  l.Text,
				Type:  strings.TrimSpace(cols[1]),
				Name:  strings.TrimSpace(cols[2]),
				Value: strings.TrimSpace(strings.Join(cols[3:], ";")),
			}},
		})
	}

	return records, errors
}
