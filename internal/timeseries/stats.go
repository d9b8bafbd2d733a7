package timeseries

import (
	"math"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// Stats summarizes the series of each field.
func Stats(entries []models.LogEntry, fields []string) []models.FieldStats {
	out := make([]models.FieldStats, 0, len(fields))
	for _, f := range fields {
		out = append(out, summarize(f, SeriesForField(entries, f)))
	}
	return out
}

func summarize(field string, points []models.SeriesPoint) models.FieldStats {
	s := models.FieldStats{
		Field: field,
		Count: len(points),
		Min:   math.NaN(),
		Max:   math.NaN(),
		Last:  math.NaN(),
	}
	for _, p := range points {
		s.Last = p.Value
		if math.IsNaN(p.Value) {
			continue
		}
		if s.Valid == 0 || p.Value < s.Min {
			s.Min = p.Value
		}
		if s.Valid == 0 || p.Value > s.Max {
			s.Max = p.Value
		}
		s.Valid++
	}
	return s
}
