// Package parser turns robot telemetry log text into typed, time-indexed
// entries.
package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robotlog-visualizer/backend/internal/models"
)

// DefaultSampleSize is the number of non-blank lines inspected for format
// detection.
const DefaultSampleSize = 10

// FormatAuto is the format name that selects detection.
const FormatAuto = "auto"

// ProgressCallback is called after each record with the record's source line
// number and the number of the last non-blank source line.
type ProgressCallback func(linesProcessed, totalLines int)

// Result is the outcome of one parse.
type Result struct {
	Data    *models.ParsedData
	Format  string
	Skipped []models.ParseError
}

// Option configures a Parser.
type Option func(*Parser)

// WithFormat forces a format by name instead of detecting it. An empty name
// or FormatAuto keeps detection.
func WithFormat(name string) Option {
	return func(p *Parser) {
		if strings.EqualFold(name, FormatAuto) {
			name = ""
		}
		p.format = name
	}
}

// WithSortByTime stable-sorts entries by relative time after parsing.
func WithSortByTime(sort bool) Option {
	return func(p *Parser) {
		p.sortByTime = sort
	}
}

// WithSampleSize sets how many lines format detection inspects.
func WithSampleSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.sampleSize = n
		}
	}
}

// WithRegistry replaces the format registry.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(p *Parser) {
		p.onProgress = cb
	}
}

// Parser parses log content. A Parser holds no per-parse state and is safe
// for concurrent use.
type Parser struct {
	registry   *Registry
	format     string
	sortByTime bool
	sampleSize int
	onProgress ProgressCallback
}

// New creates a parser with the built-in formats.
func New(opts ...Option) *Parser {
	p := &Parser{
		registry:   NewRegistry(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses content. It never fails: malformed lines and fields are
// skipped and reported in Result.Skipped.
func (p *Parser) Parse(content string) *Result {
	lines := SplitLines(content)
	b := newBuilder()

	format := p.selectFormat(lines, b)

	records, errs := format.Records(lines)
	b.skip(errs...)

	total := 0
	if len(lines) > 0 {
		total = lines[len(lines)-1].Num
	}
	for _, rec := range records {
		b.addRecord(rec)
		if p.onProgress != nil {
			p.onProgress(rec.Line, total)
		}
	}

	return &Result{
		Data:    b.finish(p.sortByTime),
		Format:  format.Name(),
		Skipped: b.skipped,
	}
}

// ParseReader reads all of r and parses it.
func (p *Parser) ParseReader(r io.Reader) (*Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read log content: %w", err)
	}
	return p.Parse(string(content)), nil
}

// ParseFile reads and parses the file at path.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.ParseReader(f)
}

// Formats lists the format names this parser knows.
func (p *Parser) Formats() []string {
	return p.registry.Names()
}

func (p *Parser) selectFormat(lines []Line, b *builder) Format {
	if p.format != "" {
		f, err := p.registry.GetFormatByName(p.format)
		if err == nil {
			return f
		}
		b.skip(&models.ParseError{Reason: err.Error() + ", detecting instead"})
	}

	sample := lines
	if len(sample) > p.sampleSize {
		sample = sample[:p.sampleSize]
	}
	return p.registry.Detect(sample)
}

// Parse parses content with the default parser and returns only the data.
func Parse(content string) *models.ParsedData {
	return New().Parse(content).Data
}

// SplitLines splits content into trimmed, non-blank lines numbered from 1.
func SplitLines(content string) []Line {
	raw := strings.Split(content, "\n")
	lines := make([]Line, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lines = append(lines, Line{Num: i + 1, Text: s})
	}
	return lines
}
