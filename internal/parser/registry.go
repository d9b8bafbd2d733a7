package parser

import (
	"fmt"
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// Line is a trimmed, non-blank source line with its 1-based line number.
type Line struct {
	Num  int
	Text string
}

// RawField is one undecoded "name:type:value" field.
type RawField struct {
	Line  int
	Text  string
	Name  string
	Type  string
	Value string
}

// Record is one timestamped group of fields extracted by a Format.
type Record struct {
	Line    int
	Label   string // raw time label, kept for display
	Seconds int    // absolute seconds since midnight
	Fields  []RawField
}

// Format is a line-format strategy. Formats only extract records; typing and
// time normalization are shared by the builder.
type Format interface {
	// Name returns the unique name of the format.
	Name() string
	// CanParse reports whether a sample of lines looks like this format.
	CanParse(sample []Line) bool
	// Records extracts records in file order, reporting lines it had to skip.
	Records(lines []Line) ([]Record, []*models.ParseError)
}

// Registry holds the available formats in detection priority order.
type Registry struct {
	formats []Format
}

func NewRegistry() *Registry {
	return &Registry{
		formats: []Format{
			NewInfoPairFormat(),
			NewFlatFormat(),
		},
	}
}

// Register adds a format with the lowest detection priority.
func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
}

// Detect returns the first format accepting the sample, or the primary
// format when none does.
func (r *Registry) Detect(sample []Line) Format {
	for _, f := range r.formats {
		if f.CanParse(sample) {
			return f
		}
	}
	return r.formats[0]
}

// GetFormatByName returns a format by its name.
func (r *Registry) GetFormatByName(name string) (Format, error) {
	name = strings.ToLower(name)
	for _, f := range r.formats {
		if strings.ToLower(f.Name()) == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("format not found: %s", name)
}

// Names lists the registered format names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for _, f := range r.formats {
		names = append(names, f.Name())
	}
	return names
}
