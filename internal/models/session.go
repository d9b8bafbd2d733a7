package models

// SessionStatus represents the status of a viewing session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusParsing  SessionStatus = "parsing"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// Query engines a session can be served by.
const (
	EngineScan   = "scan"
	EngineDuckDB = "duckdb"
)

// ParseSession represents one loaded log file and its parse state.
type ParseSession struct {
	ID                string        `json:"id"`
	FileName          string        `json:"fileName"`
	Status            SessionStatus `json:"status"`
	Format            string        `json:"format,omitempty"`
	QueryEngine       string        `json:"queryEngine,omitempty"`
	EntryCount        int           `json:"entryCount"`
	FieldCount        int           `json:"fieldCount"`
	NumericFieldCount int           `json:"numericFieldCount"`
	PoseFieldCount    int           `json:"poseFieldCount"`
	MaxTime           float64       `json:"maxTime"`
	SkippedCount      int           `json:"skippedCount"`
	ProcessingTimeMs  int64         `json:"processingTimeMs,omitempty"`
	Errors            []ParseError  `json:"errors,omitempty"`
}

// ParseError describes a line or field the parser skipped.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewParseSession creates a new ParseSession in pending status.
func NewParseSession(id, fileName string) *ParseSession {
	return &ParseSession{
		ID:       id,
		FileName: fileName,
		Status:   SessionStatusPending,
		Errors:   make([]ParseError, 0),
	}
}
