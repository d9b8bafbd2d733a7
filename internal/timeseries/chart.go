package timeseries

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// Marker is an optional current-time marker drawn on a chart.
type Marker struct {
	time float64
	set  bool
}

// NoMarker returns a marker that is not drawn.
func NoMarker() Marker { return Marker{} }

// MarkerAt returns a marker at time t.
func MarkerAt(t float64) Marker { return Marker{time: t, set: true} }

// Time returns the marker time and whether the marker is set.
func (m Marker) Time() (float64, bool) { return m.time, m.set }

func (m Marker) MarshalJSON() ([]byte, error) {
	if !m.set {
		return []byte("null"), nil
	}
	return json.Marshal(m.time)
}

// ChartRow holds the samples of every selected field that share one time.
type ChartRow struct {
	Time   float64
	Values map[string]float64
}

func (r ChartRow) MarshalJSON() ([]byte, error) {
	values := make(map[string]*float64, len(r.Values))
	for k, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[k] = nil
			continue
		}
		v := v
		values[k] = &v
	}
	return json.Marshal(struct {
		Time   float64             `json:"time"`
		Values map[string]*float64 `json:"values"`
	}{r.Time, values})
}

// Chart is the merged multi-series view of the selected fields.
type Chart struct {
	Fields []string   `json:"fields"`
	Rows   []ChartRow `json:"rows"`
	Marker Marker     `json:"marker"`
}

// BuildChart merges the series of fields onto their union time axis. Rows
// are sorted by time; a later sample of a field at the same time replaces an
// earlier one.
func BuildChart(entries []models.LogEntry, fields []string, marker Marker) *Chart {
	rows := make(map[float64]*ChartRow)
	times := make([]float64, 0)

	for _, field := range fields {
		for _, p := range SeriesForField(entries, field) {
			row, ok := rows[p.Time]
			if !ok {
				row = &ChartRow{Time: p.Time, Values: make(map[string]float64, len(fields))}
				rows[p.Time] = row
				times = append(times, p.Time)
			}
			row.Values[field] = p.Value
		}
	}

	sort.Float64s(times)

	chart := &Chart{
		Fields: make([]string, len(fields)),
		Rows:   make([]ChartRow, 0, len(times)),
		Marker: marker,
	}
	copy(chart.Fields, fields)
	for _, t := range times {
		chart.Rows = append(chart.Rows, *rows[t])
	}
	return chart
}
