package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/robotlog-visualizer/backend/internal/config"
	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/session"
)

const testLog = `10:00:00 AM
INFO:speed:Double:3.0;robot.pose:Pose2d:(1.5, -2.5, 0.3)
10:00:01 AM
INFO:speed:Double:4.0;vel:double:oops
10:00:02 AM
INFO:speed:Double:5.0;robot.pose:Pose2d:(2, -1, 0)
stray line
`

// newTestServer wires the routes to a real session manager
func newTestServer(t *testing.T) (*echo.Echo, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.Options{})
	t.Cleanup(mgr.Close)

	cfg := config.DefaultConfig()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions:    mgr,
		AllowedFile: cfg.IsAllowedFile,
		Playback:    PlaybackOptions{Step: 0.5, Interval: 10 * time.Millisecond},
		Version:     "test",
	}))
	return e, mgr
}

func multipartBody(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	return serve(e, httptest.NewRequest(http.MethodGet, target, nil))
}

// loadSession uploads testLog and waits for it to parse
func loadSession(t *testing.T, e *echo.Echo, mgr *session.Manager) string {
	t.Helper()
	body, contentType := multipartBody(t, "match.txt", testLog)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := serve(e, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var sess models.ParseSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)

	require.Eventually(t, func() bool {
		s, ok := mgr.GetSession(sess.ID)
		return ok && s.Status == models.SessionStatusComplete
	}, 5*time.Second, 10*time.Millisecond)
	return sess.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test","sessions":0}`, rec.Body.String())
}

func TestCreateSession(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var sess models.ParseSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "match.txt", sess.FileName)
	assert.Equal(t, models.SessionStatusComplete, sess.Status)
	assert.Equal(t, 2.0, sess.MaxTime)
	assert.Equal(t, 2, sess.SkippedCount)
}

func TestCreateSession_RawBody(t *testing.T) {
	e, mgr := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions?name=raw.txt", strings.NewReader(testLog))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := serve(e, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.ParseSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "raw.txt", sess.FileName)
	assert.Equal(t, 1, mgr.Count())
}

func TestCreateSession_Rejected(t *testing.T) {
	e, mgr := newTestServer(t)

	t.Run("unsupported extension", func(t *testing.T) {
		body, contentType := multipartBody(t, "match.csv", testLog)
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
		req.Header.Set(echo.HeaderContentType, contentType)

		rec := serve(e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decodeError(t, rec)
		assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
		assert.Contains(t, apiErr.Details, "match.csv")
	})

	t.Run("raw body without name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(testLog))
		rec := serve(e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("multipart without file", func(t *testing.T) {
		body := new(bytes.Buffer)
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("other", "x"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		rec := serve(e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Equal(t, 0, mgr.Count())
}

func TestSessionLifetime(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/keepalive", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = get(e, "/api/sessions/"+id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = serve(e, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/keepalive", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFields(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id+"/fields")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"numericFields": ["speed", "robot.pose.x", "robot.pose.y"],
		"poseFields": ["robot.pose"],
		"defaultSelection": ["robot.pose.x", "robot.pose.y"],
		"maxTime": 2
	}`, rec.Body.String())

	rec = get(e, "/api/sessions/missing/fields")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetValue(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)
	base := "/api/sessions/" + id + "/value"

	rec := get(e, base+"?field=speed&t=1.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"speed","time":1.5,"present":true,"value":4}`, rec.Body.String())

	rec = get(e, base+"?field=robot.pose&t=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"robot.pose","time":0,"present":true,"value":{"x":1.5,"y":-2.5,"heading":0.3}}`, rec.Body.String())

	rec = get(e, base+"?field=speed&t=-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"speed","time":-1,"present":false}`, rec.Body.String())

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"missing field", "?t=1", "VALIDATION_ERROR"},
		{"missing time", "?field=speed", "VALIDATION_ERROR"},
		{"bad time", "?field=speed&t=abc", "BAD_REQUEST"},
		{"nan time", "?field=speed&t=NaN", "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, base+tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestGetValues(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id+"/values?t=2&fields=speed,robot.pose.x,nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"time":2,"values":{"speed":5,"robot.pose.x":2}}`, rec.Body.String())

	rec = get(e, "/api/sessions/"+id+"/values?t=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"time":1,"values":{"speed":4,"robot.pose.x":1.5,"robot.pose.y":-2.5}}`, rec.Body.String())
}

func TestGetPose(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id+"/pose?field=robot.pose&t=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"robot.pose","time":1,"present":true,"pose":{"x":1.5,"y":-2.5,"heading":0.3}}`, rec.Body.String())

	rec = get(e, "/api/sessions/"+id+"/pose?field=speed&t=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"speed","time":1,"present":false}`, rec.Body.String())
}

func TestGetSeries(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)
	want := []models.SeriesPoint{{Time: 0, Value: -2.5}, {Time: 2, Value: -1}}

	rec := get(e, "/api/sessions/"+id+"/series?field=robot.pose.y")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"robot.pose.y","points":[{"time":0,"value":-2.5},{"time":2,"value":-1}]}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/series?field=robot.pose.y", nil)
	req.Header.Set(echo.HeaderAccept, MIMEApplicationMsgpack)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))

	var decoded seriesResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "robot.pose.y", decoded.Field)
	assert.Equal(t, want, decoded.Points)

	rec = get(e, "/api/sessions/"+id+"/series?field=nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"nothing","points":[]}`, rec.Body.String())

	rec = get(e, "/api/sessions/"+id+"/series")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChart(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id+"/chart?fields=speed&marker=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"fields": ["speed"],
		"rows": [
			{"time": 0, "values": {"speed": 3}},
			{"time": 1, "values": {"speed": 4}},
			{"time": 2, "values": {"speed": 5}}
		],
		"marker": 1
	}`, rec.Body.String())

	rec = get(e, "/api/sessions/"+id+"/chart")
	require.Equal(t, http.StatusOK, rec.Code)
	var chart struct {
		Fields []string `json:"fields"`
		Marker *float64 `json:"marker"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	assert.Equal(t, []string{"robot.pose.x", "robot.pose.y"}, chart.Fields)
	assert.Nil(t, chart.Marker)

	rec = get(e, "/api/sessions/"+id+"/chart?marker=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatsAndDiagnostics(t *testing.T) {
	e, mgr := newTestServer(t)
	id := loadSession(t, e, mgr)

	rec := get(e, "/api/sessions/"+id+"/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 3)
	assert.Equal(t, "speed", stats[0]["field"])
	assert.Equal(t, 5.0, stats[0]["max"])

	rec = get(e, "/api/sessions/"+id+"/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	var diags []models.ParseError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diags))
	require.Len(t, diags, 2)
	assert.ElementsMatch(t, []int{4, 7}, []int{diags[0].Line, diags[1].Line})
}

// notReadyManager reports every session as still parsing
type notReadyManager struct {
	SessionManager
}

func (notReadyManager) Fields(string) (*session.FieldInfo, error) {
	return nil, session.ErrSessionNotReady
}

func TestQueries_NotReady(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h := NewQueryHandler(notReadyManager{})
	e.GET("/api/sessions/:sessionId/fields", h.HandleGetFields)

	rec := get(e, "/api/sessions/abc/fields")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
}

func TestSetupMiddleware_BodyLimit(t *testing.T) {
	mgr := session.NewManager(session.Options{})
	t.Cleanup(mgr.Close)

	cfg := config.DefaultConfig()
	cfg.Server.BodyLimit = "1K"
	cfg.Advanced.EnableRequestLogging = false

	e := echo.New()
	SetupMiddleware(e, cfg)
	RegisterRoutes(e, NewHandlers(&Dependencies{Sessions: mgr, AllowedFile: cfg.IsAllowedFile}))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions?name=big.txt", strings.NewReader(strings.Repeat("x", 4096)))
	rec := serve(e, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "HTTP_ERROR", decodeError(t, rec).Code)
	assert.Equal(t, 0, mgr.Count())
}
