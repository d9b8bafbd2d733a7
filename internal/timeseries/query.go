// Package timeseries answers sample-and-hold queries over parsed log entries.
//
// Every function is a pure scan of an immutable entry slice and is safe for
// concurrent use. Entries need not be time-ordered: a point query picks the
// greatest time at or before t, and equal times resolve to the entry that
// comes later in file order.
package timeseries

import (
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// Pose component suffixes accepted in field names.
const (
	ComponentX = "x"
	ComponentY = "y"
)

// SplitComponent splits "robot.pose.x" into ("robot.pose", "x", true).
// Names without a ".x" or ".y" suffix return ok == false.
func SplitComponent(field string) (base, component string, ok bool) {
	for _, c := range []string{ComponentX, ComponentY} {
		if suffix := "." + c; strings.HasSuffix(field, suffix) && len(field) > len(suffix) {
			return strings.TrimSuffix(field, suffix), c, true
		}
	}
	return field, "", false
}

// latestIndex returns the index of the entry answering a point query, or -1.
func latestIndex(entries []models.LogEntry, name string, t float64, match func(*models.LogEntry) bool) int {
	best := -1
	for i := range entries {
		e := &entries[i]
		if e.Name != name || e.TimeInSeconds > t {
			continue
		}
		if match != nil && !match(e) {
			continue
		}
		if best < 0 || e.TimeInSeconds >= entries[best].TimeInSeconds {
			best = i
		}
	}
	return best
}

// ValueAtTime returns the value of field name at time t. It reports false
// when the field has no entry at or before t.
func ValueAtTime(entries []models.LogEntry, name string, t float64) (models.Value, bool) {
	i := latestIndex(entries, name, t, nil)
	if i < 0 {
		return models.Value{}, false
	}
	return entries[i].Value, true
}

// PoseAtTime is ValueAtTime restricted to pose-valued entries.
func PoseAtTime(entries []models.LogEntry, name string, t float64) (models.Pose2d, bool) {
	i := latestIndex(entries, name, t, func(e *models.LogEntry) bool { return e.Value.IsPose() })
	if i < 0 {
		return models.Pose2d{}, false
	}
	return entries[i].Value.Pose, true
}

// ValuesAtTime resolves several fields at time t in one pass. A name
// resolves to its own entries first; a "P.x" or "P.y" name with no entries of
// its own resolves to the component of the pose field P. Fields with no
// value at t are omitted.
func ValuesAtTime(entries []models.LogEntry, names []string, t float64) map[string]models.Value {
	tracked := make(map[string]struct{}, 2*len(names))
	for _, n := range names {
		tracked[n] = struct{}{}
		if base, _, ok := SplitComponent(n); ok {
			tracked[base] = struct{}{}
		}
	}

	// Best entry and best pose entry per tracked name.
	plain := make(map[string]int, len(tracked))
	pose := make(map[string]int, len(tracked))
	for i := range entries {
		e := &entries[i]
		if e.TimeInSeconds > t {
			continue
		}
		if _, ok := tracked[e.Name]; !ok {
			continue
		}
		if j, ok := plain[e.Name]; !ok || e.TimeInSeconds >= entries[j].TimeInSeconds {
			plain[e.Name] = i
		}
		if e.Value.IsPose() {
			if j, ok := pose[e.Name]; !ok || e.TimeInSeconds >= entries[j].TimeInSeconds {
				pose[e.Name] = i
			}
		}
	}

	out := make(map[string]models.Value, len(names))
	for _, n := range names {
		if i, ok := plain[n]; ok {
			out[n] = entries[i].Value
			continue
		}
		base, comp, ok := SplitComponent(n)
		if !ok || HasField(entries, n) {
			continue
		}
		if i, ok := pose[base]; ok {
			v, _ := entries[i].Value.Pose.Component(comp)
			out[n] = models.NumberValue(v)
		}
	}
	return out
}

// HasField reports whether any entry is named name.
func HasField(entries []models.LogEntry, name string) bool {
	for i := range entries {
		if entries[i].Name == name {
			return true
		}
	}
	return false
}
