package models

import "encoding/json"

// FieldStats summarizes the plotted series of one numeric field.
type FieldStats struct {
	Field string
	Count int     // samples in the series
	Valid int     // samples that are not NaN
	Min   float64 // NaN when no valid sample
	Max   float64
	Last  float64 // last sample in file order
}

// MarshalJSON writes NaN statistics as null.
func (s FieldStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Field string   `json:"field"`
		Count int      `json:"count"`
		Valid int      `json:"valid"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
		Last  *float64 `json:"last"`
	}{s.Field, s.Count, s.Valid, finite(s.Min), finite(s.Max), finite(s.Last)})
}
