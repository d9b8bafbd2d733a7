package timeseries

import (
	"math"
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// SeriesForField returns the plotted samples of field in entry order.
//
// For a pose component ("P.x", "P.y") that is not itself a field name it
// emits one point per pose-valued entry of P, with an unparseable component plotted as 0. For any other
// field it emits one point per entry: the number for numeric values (NaN
// included) and 0 for booleans, poses and strings.
func SeriesForField(entries []models.LogEntry, field string) []models.SeriesPoint {
	points := make([]models.SeriesPoint, 0)

	if base, comp, ok := SplitComponent(field); ok && !HasField(entries, field) {
		for i := range entries {
			e := &entries[i]
			if e.Name != base || !e.Value.IsPose() {
				continue
			}
			v, _ := e.Value.Pose.Component(comp)
			if math.IsNaN(v) {
				v = 0
			}
			points = append(points, models.SeriesPoint{Time: e.TimeInSeconds, Value: v})
		}
		return points
	}

	for i := range entries {
		e := &entries[i]
		if e.Name != field {
			continue
		}
		v := 0.0
		if e.Value.IsNumber() {
			v = e.Value.Number
		}
		points = append(points, models.SeriesPoint{Time: e.TimeInSeconds, Value: v})
	}
	return points
}

// DefaultSelection picks the fields plotted when a file is first loaded: the
// first field containing ".x" and the first containing ".y" when both exist,
// otherwise the first two numeric fields.
func DefaultSelection(numericFields []string) []string {
	x, y := "", ""
	for _, f := range numericFields {
		if x == "" && strings.Contains(f, ".x") {
			x = f
		}
		if y == "" && strings.Contains(f, ".y") {
			y = f
		}
	}
	if x != "" && y != "" {
		return []string{x, y}
	}

	n := len(numericFields)
	if n > 2 {
		n = 2
	}
	out := make([]string, n)
	copy(out, numericFields[:n])
	return out
}
