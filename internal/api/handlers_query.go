// handlers_query.go - Time-series query handlers
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/timeseries"
)

// MIMEApplicationMsgpack is the content type of msgpack responses
const MIMEApplicationMsgpack = "application/msgpack"

// QueryHandlerImpl implements the QueryHandler interface
type QueryHandlerImpl struct {
	sessions SessionManager
}

// NewQueryHandler creates a new query handler instance
func NewQueryHandler(sessions SessionManager) QueryHandler {
	return &QueryHandlerImpl{sessions: sessions}
}

type valueResponse struct {
	Field   string        `json:"field" msgpack:"field"`
	Time    float64       `json:"time" msgpack:"time"`
	Present bool          `json:"present" msgpack:"present"`
	Value   *models.Value `json:"value,omitempty" msgpack:"value,omitempty"`
}

type valuesResponse struct {
	Time   float64                 `json:"time"`
	Values map[string]models.Value `json:"values"`
}

type poseResponse struct {
	Field   string         `json:"field"`
	Time    float64        `json:"time"`
	Present bool           `json:"present"`
	Pose    *models.Pose2d `json:"pose,omitempty"`
}

type seriesResponse struct {
	Field  string               `json:"field" msgpack:"field"`
	Points []models.SeriesPoint `json:"points" msgpack:"points"`
}

// HandleGetFields lists numeric and pose fields of a session
func (h *QueryHandlerImpl) HandleGetFields(c echo.Context) error {
	id := c.Param("sessionId")
	info, err := h.sessions.Fields(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetValue returns the value of one field at a time
func (h *QueryHandlerImpl) HandleGetValue(c echo.Context) error {
	id := c.Param("sessionId")
	field := c.QueryParam("field")
	if field == "" {
		return NewValidationError("field")
	}
	t, err := parseTime(c.QueryParam("t"))
	if err != nil {
		return err
	}

	v, ok, err := h.sessions.ValueAtTime(c.Request().Context(), id, field, t)
	if err != nil {
		return sessionError(err, id)
	}

	resp := valueResponse{Field: field, Time: t, Present: ok}
	if ok {
		resp.Value = &v
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetValues returns a snapshot of several fields at a time. Without a
// fields parameter every numeric field is resolved.
func (h *QueryHandlerImpl) HandleGetValues(c echo.Context) error {
	id := c.Param("sessionId")
	t, err := parseTime(c.QueryParam("t"))
	if err != nil {
		return err
	}

	fields := splitList(c.QueryParam("fields"))
	if len(fields) == 0 {
		info, err := h.sessions.Fields(id)
		if err != nil {
			return sessionError(err, id)
		}
		fields = info.NumericFields
	}

	values, err := h.sessions.ValuesAtTime(c.Request().Context(), id, fields, t)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, valuesResponse{Time: t, Values: values})
}

// HandleGetPose returns the latest pose of a field at a time
func (h *QueryHandlerImpl) HandleGetPose(c echo.Context) error {
	id := c.Param("sessionId")
	field := c.QueryParam("field")
	if field == "" {
		return NewValidationError("field")
	}
	t, err := parseTime(c.QueryParam("t"))
	if err != nil {
		return err
	}

	p, ok, err := h.sessions.PoseAtTime(id, field, t)
	if err != nil {
		return sessionError(err, id)
	}

	resp := poseResponse{Field: field, Time: t, Present: ok}
	if ok {
		resp.Pose = &p
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetSeries returns the plotted samples of a field, as msgpack when
// the client accepts it
func (h *QueryHandlerImpl) HandleGetSeries(c echo.Context) error {
	id := c.Param("sessionId")
	field := c.QueryParam("field")
	if field == "" {
		return NewValidationError("field")
	}

	points, err := h.sessions.Series(c.Request().Context(), id, field)
	if err != nil {
		return sessionError(err, id)
	}
	if points == nil {
		points = []models.SeriesPoint{}
	}

	resp := seriesResponse{Field: field, Points: points}
	if acceptsMsgpack(c) {
		data, err := msgpack.Marshal(resp)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetChart merges several series into chart rows. Without a fields
// parameter the default selection is charted.
func (h *QueryHandlerImpl) HandleGetChart(c echo.Context) error {
	id := c.Param("sessionId")

	fields := splitList(c.QueryParam("fields"))
	if len(fields) == 0 {
		info, err := h.sessions.Fields(id)
		if err != nil {
			return sessionError(err, id)
		}
		fields = info.DefaultSelection
	}

	marker := timeseries.NoMarker()
	if raw := c.QueryParam("marker"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		marker = timeseries.MarkerAt(t)
	}

	chart, err := h.sessions.Chart(id, fields, marker)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, chart)
}

// HandleGetStats summarizes every numeric field
func (h *QueryHandlerImpl) HandleGetStats(c echo.Context) error {
	id := c.Param("sessionId")
	stats, err := h.sessions.FieldStats(c.Request().Context(), id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleGetDiagnostics lists the lines and fields the parser skipped
func (h *QueryHandlerImpl) HandleGetDiagnostics(c echo.Context) error {
	id := c.Param("sessionId")
	diags, err := h.sessions.Diagnostics(id)
	if err != nil {
		return sessionError(err, id)
	}
	if diags == nil {
		diags = []models.ParseError{}
	}
	return c.JSON(http.StatusOK, diags)
}

// parseTime reads a finite relative time in seconds
func parseTime(raw string) (float64, error) {
	if raw == "" {
		return 0, NewValidationError("t")
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewBadRequestError("invalid time", err)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, NewBadRequestError("invalid time", errors.New("time must be finite"))
	}
	return t, nil
}

// splitList splits a comma separated query parameter, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func acceptsMsgpack(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}
