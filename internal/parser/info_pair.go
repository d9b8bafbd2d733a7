package parser

import (
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

const infoPrefix = "INFO:"

// InfoPairFormat handles time-header/INFO-line pairs.
// Format:
//
//	<line containing h:mm:ss[ AM|PM]>
//	INFO:<name>:<type>:<value>;<name>:<type>:<value>;...
type InfoPairFormat struct{}

func NewInfoPairFormat() *InfoPairFormat {
	return &InfoPairFormat{}
}

func (f *InfoPairFormat) Name() string {
	return "info_pair"
}

func (f *InfoPairFormat) CanParse(sample []Line) bool {
	for _, l := range sample {
		if strings.HasPrefix(l.Text, infoPrefix) {
			return true
		}
	}
	return false
}

func (f *InfoPairFormat) Records(lines []Line) ([]Record, []*models.ParseError) {
	records := make([]Record, 0)
	errors := make([]*models.ParseError, 0)

	for i := 0; i < len(lines); i++ {
		cur := lines[i]
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1].Text, infoPrefix) {
			errors = append(errors, &models.ParseError{
				Line:    cur.Num,
				Content: cur.Text,
				Reason:  "line is not part of a time/INFO pair",
			})
			continue
		}

		secs, ok := ClockSeconds(cur.Text)
		if !ok {
			// The INFO line gets its own turn as a header candidate.
			errors = append(errors, &models.ParseError{
				Line:    cur.Num,
				Content: cur.Text,
				Reason:  "no clock time before INFO line",
			})
			continue
		}

		info := lines[i+1]
		fields, fieldErrs := splitPayload(info)
		errors = append(errors, fieldErrs...)

		records = append(records, Record{
			Line:    cur.Num,
			Label:   cur.Text,
			Seconds: secs,
			Fields:  fields,
		})
		i++
	}

	return records, errors
}

// splitPayload splits an INFO line into "name:type:value" fields. The value
// keeps any further ':' characters.
func splitPayload(info Line) ([]RawField, []*models.ParseError) {
	data := strings.TrimSpace(info.Text[len(infoPrefix):])

	fields := make([]RawField, 0)
	var errors []*models.ParseError
	for _, piece := range strings.Split(data, ";") {
		if strings.TrimSpace(piece) == "" {
			continue
		}

		parts := strings.Split(piece, ":")
		if len(parts) < 3 {
			errors = append(errors, &models.ParseError{
				Line:    info.Num,
				Content: piece,
				Reason:  "field is not name:type:value",
			})
			continue
		}

		fields = append(fields, RawField{
			Line:  info.Num,
			Text:  piece,
			Name:  strings.TrimSpace(parts[0]),
			Type:  strings.TrimSpace(parts[1]),
			Value: strings.TrimSpace(strings.Join(parts[2:], ":")),
		})
	}
	return fields, errors
}
