package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// clockRegex matches "H:MM:SS" anywhere in a line.
var clockRegex = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})`)

// ClockSeconds extracts a wall-clock time from text and returns it as seconds
// since midnight. 12-hour times are converted using an "AM"/"PM" marker found
// anywhere in the text; text without a marker is taken as 24-hour.
func ClockSeconds(text string) (int, bool) {
	m := clockRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	if strings.Contains(text, "PM") && hours != 12 {
		hours += 12
	} else if strings.Contains(text, "AM") && hours == 12 {
		hours = 0
	}

	return hours*3600 + minutes*60 + seconds, true
}
