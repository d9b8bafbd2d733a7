// Package models contains domain types for the Robot Log Visualizer.
package models

import (
	"encoding/json"
	"math"
)

// LogEntry is one observation of one named field at one instant.
type LogEntry struct {
	Timestamp     string  `json:"timestamp" msgpack:"timestamp"` // raw time label from the source line
	Type          string  `json:"type" msgpack:"type"`
	Name          string  `json:"name" msgpack:"name"`
	Value         Value   `json:"value" msgpack:"value"`
	TimeInSeconds float64 `json:"timeInSeconds" msgpack:"timeInSeconds"`
}

// Pose2d is a field position in inches with a heading in radians.
type Pose2d struct {
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Heading float64 `json:"heading" msgpack:"heading"`
}

// Component returns the named pose component ("x", "y" or "heading").
func (p Pose2d) Component(name string) (float64, bool) {
	switch name {
	case "x":
		return p.X, true
	case "y":
		return p.Y, true
	case "heading":
		return p.Heading, true
	}
	return 0, false
}

type poseJSON struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Heading *float64 `json:"heading"`
}

// MarshalJSON writes components that failed to parse (NaN) as null.
func (p Pose2d) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{X: finite(p.X), Y: finite(p.Y), Heading: finite(p.Heading)})
}

// UnmarshalJSON reads null components back as NaN.
func (p *Pose2d) UnmarshalJSON(data []byte) error {
	var raw poseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.X, p.Y, p.Heading = orNaN(raw.X), orNaN(raw.Y), orNaN(raw.Heading)
	return nil
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func orNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
