package parser

import (
	"sort"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// SortByTime orders entries by relative time in place. Entries sharing a
// time keep their file order.
func SortByTime(entries []models.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TimeInSeconds < entries[j].TimeInSeconds
	})
}

// IsTimeOrdered reports whether entries are already in non-decreasing time
// order.
func IsTimeOrdered(entries []models.LogEntry) bool {
	return sort.SliceIsSorted(entries, func(i, j int) bool {
		return entries[i].TimeInSeconds < entries[j].TimeInSeconds
	})
}
