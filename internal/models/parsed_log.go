package models

import "encoding/json"

// ParsedData is the result of parsing a log file. It is never mutated after parse.
type ParsedData struct {
	Entries       []LogEntry `json:"entries" msgpack:"entries"`
	NumericFields []string   `json:"numericFields" msgpack:"numericFields"`
	PoseFields    []string   `json:"poseFields" msgpack:"poseFields"`
	MaxTime       float64    `json:"maxTime" msgpack:"maxTime"`
}

// NewParsedData creates a new empty ParsedData.
func NewParsedData() *ParsedData {
	return &ParsedData{
		Entries:       make([]LogEntry, 0),
		NumericFields: make([]string, 0),
		PoseFields:    make([]string, 0),
	}
}

// FieldCount returns the number of distinct field names in the entries.
func (d *ParsedData) FieldCount() int {
	seen := make(map[string]struct{})
	for i := range d.Entries {
		seen[d.Entries[i].Name] = struct{}{}
	}
	return len(seen)
}

// SeriesPoint is one plotted sample of a field.
type SeriesPoint struct {
	Time  float64 `json:"time" msgpack:"time"`
	Value float64 `json:"value" msgpack:"value"`
}

// MarshalJSON writes NaN samples as null.
func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	type point struct {
		Time  float64  `json:"time"`
		Value *float64 `json:"value"`
	}
	return json.Marshal(point{Time: p.Time, Value: finite(p.Value)})
}
