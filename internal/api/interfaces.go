// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/session"
	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionHandler handles loading logs and session lifetime
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
}

// QueryHandler answers time-series queries against a loaded session
type QueryHandler interface {
	HandleGetFields(c echo.Context) error
	HandleGetValue(c echo.Context) error
	HandleGetValues(c echo.Context) error
	HandleGetPose(c echo.Context) error
	HandleGetSeries(c echo.Context) error
	HandleGetChart(c echo.Context) error
	HandleGetStats(c echo.Context) error
	HandleGetDiagnostics(c echo.Context) error
}

// PlaybackHandler streams playback frames over a websocket
type PlaybackHandler interface {
	HandlePlayback(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileName string, content []byte) (*models.ParseSession, error)
	GetSession(id string) (*models.ParseSession, bool)
	TouchSession(id string) bool
	DeleteSession(id string) bool
	Count() int
	Fields(id string) (*session.FieldInfo, error)
	Diagnostics(id string) ([]models.ParseError, error)
	ValueAtTime(ctx context.Context, id, field string, t float64) (models.Value, bool, error)
	PoseAtTime(id, field string, t float64) (models.Pose2d, bool, error)
	ValuesAtTime(ctx context.Context, id string, fields []string, t float64) (map[string]models.Value, error)
	Series(ctx context.Context, id, field string) ([]models.SeriesPoint, error)
	Chart(id string, fields []string, marker timeseries.Marker) (*timeseries.Chart, error)
	FieldStats(ctx context.Context, id string) ([]models.FieldStats, error)
}

var _ SessionManager = (*session.Manager)(nil)
