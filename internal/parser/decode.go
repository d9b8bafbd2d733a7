package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// FieldClass tells the builder how a decoded field registers in ParsedData.
type FieldClass int

const (
	ClassOther FieldClass = iota
	ClassNumeric
	ClassPose
	ClassInvalidNumeric
	ClassInvalidPose
)

// poseRegex matches a pose literal "(x, y, heading)".
var poseRegex = regexp.MustCompile(`\(([^,]+),\s*([^,]+),\s*([^)]+)\)`)

var numericTypes = map[string]struct{}{
	"double": {},
	"long":   {},
	"int":    {},
	"float":  {},
	"number": {},
}

func isPoseType(t string) bool    { return t == "Pose" || t == "Pose2d" }
func isBooleanType(t string) bool { return t == "Boolean" || t == "boolean" }

func isNumericType(t string) bool {
	_, ok := numericTypes[strings.ToLower(t)]
	return ok
}

// DecodeValue converts a raw field value according to its declared type tag.
// It never fails: unparseable numbers become NaN and unparseable pose
// literals fall back to the raw string.
func DecodeValue(typeTag, raw string) (models.Value, FieldClass) {
	s := strings.TrimSpace(raw)

	switch {
	case isPoseType(typeTag):
		m := poseRegex.FindStringSubmatch(s)
		if m == nil {
			return models.StringValue(s), ClassInvalidPose
		}
		return models.PoseValue(models.Pose2d{
			X:       parseNumber(m[1]),
			Y:       parseNumber(m[2]),
			Heading: parseNumber(m[3]),
		}), ClassPose

	case isNumericType(typeTag):
		f := parseNumber(s)
		if math.IsNaN(f) {
			return models.NumberValue(f), ClassInvalidNumeric
		}
		return models.NumberValue(f), ClassNumeric

	case isBooleanType(typeTag):
		return models.BoolValue(s == "true"), ClassOther

	default:
		return models.StringValue(s), ClassOther
	}
}

// numberPrefix matches the longest leading decimal float, so unit suffixes
// like "12.5 m/s" or "0.3rad" are dropped.
var numberPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// parseNumber parses the leading float of s, returning NaN when there is
// none. Out of range literals become ±Inf.
func parseNumber(s string) float64 {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// fieldSet is an insertion-ordered string set.
type fieldSet struct {
	order []string
	seen  map[string]struct{}
}

func newFieldSet() *fieldSet {
	return &fieldSet{order: make([]string, 0), seen: make(map[string]struct{})}
}

func (s *fieldSet) add(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
}

// builder turns raw records into ParsedData. Zero-point latching and field
// registration live here so every format shares them.
type builder struct {
	entries  []models.LogEntry
	skipped  []models.ParseError
	numeric  *fieldSet
	poses    *fieldSet
	intern   *StringIntern
	zero     int
	haveZero bool
}

func newBuilder() *builder {
	return &builder{
		entries: make([]models.LogEntry, 0),
		skipped: make([]models.ParseError, 0),
		numeric: newFieldSet(),
		poses:   newFieldSet(),
		intern:  NewStringIntern(),
	}
}

func (b *builder) skip(errs ...*models.ParseError) {
	for _, e := range errs {
		if e != nil {
			b.skipped = append(b.skipped, *e)
		}
	}
}

func (b *builder) addRecord(rec Record) {
	if !b.haveZero {
		b.zero = rec.Seconds
		b.haveZero = true
	}
	relative := float64(rec.Seconds - b.zero)

	for _, f := range rec.Fields {
		name := b.intern.Intern(f.Name)
		typeTag := b.intern.Intern(f.Type)
		value, class := DecodeValue(typeTag, f.Value)

		switch class {
		case ClassNumeric:
			b.numeric.add(name)
		case ClassPose:
			b.poses.add(name)
			b.numeric.add(name + ".x")
			b.numeric.add(name + ".y")
		case ClassInvalidNumeric:
			b.skip(&models.ParseError{Line: f.Line, Content: f.Text, Reason: fmt.Sprintf("invalid %s value for %s", typeTag, name)})
		case ClassInvalidPose:
			b.skip(&models.ParseError{Line: f.Line, Content: f.Text, Reason: fmt.Sprintf("invalid pose literal for %s", name)})
		}

		b.entries = append(b.entries, models.LogEntry{
			Timestamp:     rec.Label,
			Type:          typeTag,
			Name:          name,
			Value:         value,
			TimeInSeconds: relative,
		})
	}
}

func (b *builder) finish(sortByTime bool) *models.ParsedData {
	if sortByTime {
		SortByTime(b.entries)
	}

	data := &models.ParsedData{
		Entries:       b.entries,
		NumericFields: b.numeric.order,
		PoseFields:    b.poses.order,
	}
	for i, e := range b.entries {
		if i == 0 || e.TimeInSeconds > data.MaxTime {
			data.MaxTime = e.TimeInSeconds
		}
	}
	return data
}
