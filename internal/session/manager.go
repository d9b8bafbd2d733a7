// Package session keeps the parsed logs that viewers are currently working with.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/robotlog-visualizer/backend/internal/logging"
	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/parser"
	"github.com/robotlog-visualizer/backend/internal/store"
	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// DefaultMaxSessions limits concurrent sessions to prevent memory exhaustion
const DefaultMaxSessions = 10

// DefaultKeepAliveWindow is how long a recently touched session is protected from cleanup
const DefaultKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotReady = errors.New("session is not ready")
	ErrTooManySessions = errors.New("too many active sessions")
)

// Options configures a Manager.
type Options struct {
	MaxSessions     int
	KeepAliveWindow time.Duration
	ParserOptions   []parser.Option
	QueryEngine     string
	StoreOptions    store.Options
}

// Manager handles active log sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	opts     Options
	log      *log.Logger
}

// SessionState holds the session metadata and its parsed data.
type SessionState struct {
	Session      *models.ParseSession
	Data         *models.ParsedData
	Skipped      []models.ParseError
	DuckStore    *store.DuckStore // nil unless the duckdb engine is active
	LastAccessed time.Time        // Last time the session was accessed (for keep-alive)
}

// FieldInfo lists the plottable fields of a session.
type FieldInfo struct {
	NumericFields    []string `json:"numericFields"`
	PoseFields       []string `json:"poseFields"`
	DefaultSelection []string `json:"defaultSelection"`
	MaxTime          float64  `json:"maxTime"`
}

// NewManager creates a new session manager.
func NewManager(opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.KeepAliveWindow <= 0 {
		opts.KeepAliveWindow = DefaultKeepAliveWindow
	}
	if opts.QueryEngine == "" {
		opts.QueryEngine = models.EngineScan
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		opts:     opts,
		log:      logging.New("Session"),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// StartSession registers a new session and parses content in the background.
func (m *Manager) StartSession(fileName string, content []byte) (*models.ParseSession, error) {
	sessionID := uuid.New().String()

	session := models.NewParseSession(sessionID, fileName)
	state := &SessionState{
		Session:      session,
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.evictIfNeeded()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[sessionID] = state
	snapshot := *session
	m.mu.Unlock()

	m.log.Infof("[%s] session created for %s (%d bytes)", shortID(sessionID), fileName, len(content))

	go m.runParse(sessionID, content)

	return &snapshot, nil
}

func (m *Manager) runParse(sessionID string, content []byte) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("[%s] PANIC recovered: %v", shortID(sessionID), r)
			m.updateSessionError(sessionID, fmt.Sprintf("parse panicked: %v", r))
		}
	}()

	start := time.Now()

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Status = models.SessionStatusParsing
	}
	m.mu.Unlock()

	res := parser.New(m.opts.ParserOptions...).Parse(string(content))
	m.log.Infof("[%s] parsed %d entries as %s, %d skipped",
		shortID(sessionID), len(res.Data.Entries), res.Format, len(res.Skipped))
	if !parser.IsTimeOrdered(res.Data.Entries) {
		m.log.Warnf("[%s] entries are not in time order; queries use the latest time at or before t", shortID(sessionID))
	}

	engine := models.EngineScan
	var ds *store.DuckStore
	if m.opts.QueryEngine == models.EngineDuckDB {
		var err error
		ds, err = store.NewDuckStore(context.Background(), res.Data, m.opts.StoreOptions)
		if err != nil {
			m.log.Warnf("[%s] DuckDB store unavailable, using scan engine: %v", shortID(sessionID), err)
		} else {
			engine = models.EngineDuckDB
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		// Deleted while parsing.
		if ds != nil {
			ds.Close()
		}
		return
	}

	state.Data = res.Data
	state.Skipped = res.Skipped
	state.DuckStore = ds

	s := state.Session
	s.Status = models.SessionStatusComplete
	s.Format = res.Format
	s.QueryEngine = engine
	s.EntryCount = len(res.Data.Entries)
	s.FieldCount = res.Data.FieldCount()
	s.NumericFieldCount = len(res.Data.NumericFields)
	s.PoseFieldCount = len(res.Data.PoseFields)
	s.MaxTime = res.Data.MaxTime
	s.SkippedCount = len(res.Skipped)
	s.ProcessingTimeMs = time.Since(start).Milliseconds()
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, models.ParseError{
		Reason: reason,
	})
}

func isFinished(s *models.ParseSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

// evictIfNeeded removes the least recently used finished sessions until a new
// one fits. Callers hold m.mu.
func (m *Manager) evictIfNeeded() {
	if len(m.sessions) < m.opts.MaxSessions {
		return
	}

	var candidates []*SessionState
	for _, state := range m.sessions {
		if isFinished(state.Session) {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	for i := 0; i < toFree && i < len(candidates); i++ {
		id := candidates[i].Session.ID
		m.removeLocked(id)
		m.log.Infof("[%s] evicted to make room for a new session", shortID(id))
	}
}

func (m *Manager) removeLocked(id string) {
	state, ok := m.sessions[id]
	if !ok {
		return
	}
	if state.DuckStore != nil {
		state.DuckStore.Close()
	}
	delete(m.sessions, id)
}

// CleanupOldSessions removes finished sessions not accessed within maxAge.
// Sessions touched within the keep-alive window are always kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-m.opts.KeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !isFinished(state.Session) {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			m.log.Infof("[%s] cleaned up aged session (last accessed %s ago)",
				shortID(id), now.Sub(state.LastAccessed).Round(time.Second))
			m.removeLocked(id)
			removed++
		}
	}
	return removed
}

// GetSession returns a copy of the session metadata.
func (m *Manager) GetSession(id string) (*models.ParseSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s := *state.Session
	s.Errors = append([]models.ParseError(nil), state.Session.Errors...)
	return &s, true
}

// TouchSession marks a session as in use.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteSession removes a session and releases its resources.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.removeLocked(id)
	return true
}

// Count returns the number of held sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		m.removeLocked(id)
	}
}

// ready returns the state of a completed session and touches it.
func (m *Manager) ready(id string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Session.Status != models.SessionStatusComplete {
		return nil, ErrSessionNotReady
	}
	state.LastAccessed = time.Now()
	return state, nil
}

// storeError reports a store closed under a running query as a removed session.
func storeError(err error) error {
	if errors.Is(err, store.ErrClosed) {
		return ErrSessionNotFound
	}
	return err
}

// Data returns the parsed data of a completed session.
func (m *Manager) Data(id string) (*models.ParsedData, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	return state.Data, nil
}

// Fields lists the plottable fields of a session.
func (m *Manager) Fields(id string) (*FieldInfo, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	d := state.Data
	return &FieldInfo{
		NumericFields:    d.NumericFields,
		PoseFields:       d.PoseFields,
		DefaultSelection: timeseries.DefaultSelection(d.NumericFields),
		MaxTime:          d.MaxTime,
	}, nil
}

// Diagnostics returns the lines and fields the parser skipped.
func (m *Manager) Diagnostics(id string) ([]models.ParseError, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	return state.Skipped, nil
}

// ValueAtTime returns the value of field at time t.
func (m *Manager) ValueAtTime(ctx context.Context, id, field string, t float64) (models.Value, bool, error) {
	state, err := m.ready(id)
	if err != nil {
		return models.Value{}, false, err
	}
	if state.DuckStore != nil {
		v, ok, err := state.DuckStore.ValueAtTime(ctx, field, t)
		return v, ok, storeError(err)
	}
	v, ok := timeseries.ValueAtTime(state.Data.Entries, field, t)
	return v, ok, nil
}

// PoseAtTime returns the latest pose of field at time t.
func (m *Manager) PoseAtTime(id, field string, t float64) (models.Pose2d, bool, error) {
	state, err := m.ready(id)
	if err != nil {
		return models.Pose2d{}, false, err
	}
	p, ok := timeseries.PoseAtTime(state.Data.Entries, field, t)
	return p, ok, nil
}

// ValuesAtTime resolves several fields at time t.
func (m *Manager) ValuesAtTime(ctx context.Context, id string, fields []string, t float64) (map[string]models.Value, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	if state.DuckStore != nil {
		values, err := state.DuckStore.ValuesAtTime(ctx, fields, t)
		return values, storeError(err)
	}
	return timeseries.ValuesAtTime(state.Data.Entries, fields, t), nil
}

// Series returns the plotted samples of field.
func (m *Manager) Series(ctx context.Context, id, field string) ([]models.SeriesPoint, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	if state.DuckStore != nil {
		points, err := state.DuckStore.Series(ctx, field)
		return points, storeError(err)
	}
	return timeseries.SeriesForField(state.Data.Entries, field), nil
}

// Chart merges the series of fields into chart rows.
func (m *Manager) Chart(id string, fields []string, marker timeseries.Marker) (*timeseries.Chart, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	return timeseries.BuildChart(state.Data.Entries, fields, marker), nil
}

// FieldStats summarizes every numeric field of a session.
func (m *Manager) FieldStats(ctx context.Context, id string) ([]models.FieldStats, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	if state.DuckStore != nil {
		stats, err := state.DuckStore.FieldStats(ctx, state.Data.NumericFields)
		return stats, storeError(err)
	}
	return timeseries.Stats(state.Data.Entries, state.Data.NumericFields), nil
}
