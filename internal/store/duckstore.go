// Package store mirrors one session's parsed entries into an in-memory DuckDB
// database and answers the same point and series queries over SQL.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"

	"github.com/robotlog-visualizer/backend/internal/logging"
	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// ErrClosed is returned by queries on a closed store.
var ErrClosed = errors.New("store is closed")

// Options tunes the embedded database.
type Options struct {
	MemoryLimit          string // e.g. "512MB"; empty keeps the DuckDB default
	Threads              int    // 0 keeps the DuckDB default
	MaxConcurrentQueries int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MemoryLimit:          "512MB",
		Threads:              2,
		MaxConcurrentQueries: 3,
	}
}

// DuckStore holds the entries of one parse in an in-memory DuckDB table.
type DuckStore struct {
	db         *sql.DB
	entryCount int
	names      map[string]struct{} // distinct field names
	log        *log.Logger

	// Semaphore to limit concurrent queries
	querySem chan struct{}

	// mu is read-held by running queries; Close takes it exclusively.
	mu     sync.RWMutex
	closed bool
}

// NewDuckStore creates an in-memory database and loads data into it.
func NewDuckStore(ctx context.Context, data *models.ParsedData, opts Options) (*DuckStore, error) {
	logger := logging.New("DuckStore")

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		var pragmas []string
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("SET memory_limit='%s'", opts.MemoryLimit))
		}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("SET threads=%d", opts.Threads))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE entries (
			seq      BIGINT NOT NULL,
			ts       DOUBLE NOT NULL,
			name     VARCHAR NOT NULL,
			type_tag VARCHAR NOT NULL,
			kind     VARCHAR NOT NULL,
			num      DOUBLE NOT NULL,
			flag     BOOLEAN NOT NULL,
			x        DOUBLE NOT NULL,
			y        DOUBLE NOT NULL,
			heading  DOUBLE NOT NULL,
			text     VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	maxQueries := opts.MaxConcurrentQueries
	if maxQueries <= 0 {
		maxQueries = 1
	}

	ds := &DuckStore{
		db:       db,
		log:      logger,
		querySem: make(chan struct{}, maxQueries),
	}

	start := time.Now()
	if err := ds.load(ctx, data.Entries); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "CREATE INDEX idx_name_ts ON entries(name, ts)"); err != nil {
		logger.Warnf("index creation failed: %v", err)
	}

	logger.Debugf("loaded %d entries in %v", ds.entryCount, time.Since(start))
	return ds, nil
}

// load writes entries with the native Appender API.
func (ds *DuckStore) load(ctx context.Context, entries []models.LogEntry) error {
	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "entries")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i := range entries {
			e := &entries[i]
			v := e.Value
			err := appender.AppendRow(
				int64(i),
				e.TimeInSeconds,
				e.Name,
				e.Type,
				string(v.Kind),
				v.Number,
				v.Bool,
				v.Pose.X,
				v.Pose.Y,
				v.Pose.Heading,
				v.Text,
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ds.entryCount = len(entries)
	ds.names = make(map[string]struct{})
	for i := range entries {
		ds.names[entries[i].Name] = struct{}{}
	}
	return nil
}

// component splits a pose component name unless the name is itself a field.
func (ds *DuckStore) component(field string) (base, comp string, ok bool) {
	if _, own := ds.names[field]; own {
		return field, "", false
	}
	return timeseries.SplitComponent(field)
}

func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	ds.mu.RLock()
	if ds.closed {
		ds.mu.RUnlock()
		return nil, ErrClosed
	}
	select {
	case ds.querySem <- struct{}{}:
		return func() {
			<-ds.querySem
			ds.mu.RUnlock()
		}, nil
	case <-ctx.Done():
		ds.mu.RUnlock()
		return nil, ctx.Err()
	}
}

// Len returns the number of stored entries.
func (ds *DuckStore) Len() int {
	return ds.entryCount
}

const valueColumns = "kind, num, flag, x, y, heading, text"

// ValueAtTime returns the value of field name at time t, false if none.
func (ds *DuckStore) ValueAtTime(ctx context.Context, name string, t float64) (models.Value, bool, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return models.Value{}, false, err
	}
	defer release()

	row := ds.db.QueryRowContext(ctx, `
		SELECT `+valueColumns+`
		FROM entries
		WHERE name = ? AND ts <= ?
		ORDER BY ts DESC, seq DESC
		LIMIT 1
	`, name, t)

	v, err := scanValue(row)
	if err == sql.ErrNoRows {
		return models.Value{}, false, nil
	}
	if err != nil {
		return models.Value{}, false, err
	}
	return v, true, nil
}

// ValuesAtTime resolves several fields at time t. Pose components ("P.x")
// resolve to the component of the latest pose of P. Absent fields are omitted.
func (ds *DuckStore) ValuesAtTime(ctx context.Context, names []string, t float64) (map[string]models.Value, error) {
	out := make(map[string]models.Value, len(names))
	if len(names) == 0 {
		return out, nil
	}

	bases := make([]interface{}, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		base, _, _ := ds.component(n)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		bases = append(bases, base)
	}

	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bases)), ",")
	query := `
		WITH ranked AS (
			SELECT name, ` + valueColumns + `,
				ROW_NUMBER() OVER (PARTITION BY name ORDER BY ts DESC, seq DESC) AS rn,
				ROW_NUMBER() OVER (PARTITION BY name, kind = 'pose' ORDER BY ts DESC, seq DESC) AS prn
			FROM entries
			WHERE ts <= ? AND name IN (` + placeholders + `)
		)
		SELECT name, rn, prn, ` + valueColumns + `
		FROM ranked
		WHERE rn = 1 OR (kind = 'pose' AND prn = 1)
	`
	args := append([]interface{}{t}, bases...)

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("values query failed: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.Value)
	latestPose := make(map[string]models.Pose2d)
	for rows.Next() {
		var (
			name    string
			rn, prn int64
		)
		v, err := scanValue(rows, &name, &rn, &prn)
		if err != nil {
			return nil, err
		}
		if rn == 1 {
			latest[name] = v
		}
		if v.IsPose() && prn == 1 {
			latestPose[name] = v.Pose
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range names {
		if base, comp, ok := ds.component(n); ok {
			if p, found := latestPose[base]; found {
				c, _ := p.Component(comp)
				out[n] = models.NumberValue(c)
			}
			continue
		}
		if v, found := latest[n]; found {
			out[n] = v
		}
	}
	return out, nil
}

// seriesQuery returns the SQL selecting (seq, time, v) for a plotted field.
func (ds *DuckStore) seriesQuery(field string) (string, string) {
	if base, comp, ok := ds.component(field); ok {
		col := "x"
		if comp == timeseries.ComponentY {
			col = "y"
		}
		return `SELECT seq, ts, CASE WHEN isnan(` + col + `) THEN 0 ELSE ` + col + ` END AS v
			FROM entries WHERE name = ? AND kind = 'pose'`, base
	}
	return `SELECT seq, ts, CASE WHEN kind = 'number' THEN num ELSE 0 END AS v
		FROM entries WHERE name = ?`, field
}

// Series returns the plotted samples of field in entry order.
func (ds *DuckStore) Series(ctx context.Context, field string) ([]models.SeriesPoint, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query, arg := ds.seriesQuery(field)
	rows, err := ds.db.QueryContext(ctx, query+" ORDER BY seq", arg)
	if err != nil {
		return nil, fmt.Errorf("series query failed: %w", err)
	}
	defer rows.Close()

	points := make([]models.SeriesPoint, 0)
	for rows.Next() {
		var (
			seq int64
			p   models.SeriesPoint
		)
		if err := rows.Scan(&seq, &p.Time, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// FieldStats summarizes the series of each field.
func (ds *DuckStore) FieldStats(ctx context.Context, fields []string) ([]models.FieldStats, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]models.FieldStats, 0, len(fields))
	for _, field := range fields {
		series, arg := ds.seriesQuery(field)
		row := ds.db.QueryRowContext(ctx, `
			WITH s AS (`+series+`)
			SELECT
				count(*),
				count(*) FILTER (WHERE NOT isnan(v)),
				min(v) FILTER (WHERE NOT isnan(v)),
				max(v) FILTER (WHERE NOT isnan(v)),
				arg_max(v, seq)
			FROM s
		`, arg)

		var (
			st           = models.FieldStats{Field: field}
			lo, hi, last sql.NullFloat64
		)
		if err := row.Scan(&st.Count, &st.Valid, &lo, &hi, &last); err != nil {
			return nil, fmt.Errorf("stats query for %s failed: %w", field, err)
		}
		st.Min = orNaN(lo)
		st.Max = orNaN(hi)
		st.Last = orNaN(last)
		out = append(out, st)
	}
	return out, nil
}

// Close waits for running queries, then closes the database. The in-memory
// data is discarded and later queries fail with ErrClosed.
func (ds *DuckStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil
	}
	ds.closed = true
	err := ds.db.Close()
	ds.log.Debugf("closed store with %d entries", ds.entryCount)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanValue scans the value columns, after any leading destinations.
func scanValue(s scanner, leading ...interface{}) (models.Value, error) {
	var (
		kind string
		v    models.Value
	)
	dest := append(leading, &kind, &v.Number, &v.Bool, &v.Pose.X, &v.Pose.Y, &v.Pose.Heading, &v.Text)
	if err := s.Scan(dest...); err != nil {
		return models.Value{}, err
	}

	switch models.ValueKind(kind) {
	case models.ValueKindNumber:
		return models.NumberValue(v.Number), nil
	case models.ValueKindBoolean:
		return models.BoolValue(v.Bool), nil
	case models.ValueKindPose:
		return models.PoseValue(v.Pose), nil
	default:
		return models.StringValue(v.Text), nil
	}
}

func orNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
