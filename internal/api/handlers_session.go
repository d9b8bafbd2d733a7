// handlers_session.go - Session loading and lifetime handlers
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/robotlog-visualizer/backend/internal/logging"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions    SessionManager
	allowedFile func(name string) bool
	log         *log.Logger
}

// NewSessionHandler creates a session handler. allowedFile filters upload
// names; nil accepts every name.
func NewSessionHandler(sessions SessionManager, allowedFile func(name string) bool) SessionHandler {
	if allowedFile == nil {
		allowedFile = func(string) bool { return true }
	}
	return &SessionHandlerImpl{
		sessions:    sessions,
		allowedFile: allowedFile,
		log:         logging.New("api"),
	}
}

// HandleCreateSession loads a log from a multipart "file" part, or from the
// raw request body named by the "name" query parameter.
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	name, content, err := readLogUpload(c)
	if err != nil {
		return err
	}

	if !h.allowedFile(name) {
		apiErr := NewValidationError("file")
		apiErr.Details = fmt.Sprintf("unsupported file type: %s", name)
		return apiErr
	}

	sess, err := h.sessions.StartSession(name, content)
	if err != nil {
		return sessionError(err, "")
	}

	h.log.Infof("[%s] Loading %s (%d bytes)", sess.ID, name, len(content))
	return c.JSON(http.StatusAccepted, sess)
}

func readLogUpload(c echo.Context) (string, []byte, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return "", nil, NewValidationError("file")
			}
			return "", nil, NewBadRequestError("invalid multipart form", err)
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, NewInternalError("failed to open uploaded file", err)
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return "", nil, NewBadRequestError("failed to read uploaded file", err)
		}
		return fh.Filename, content, nil
	}

	name := c.QueryParam("name")
	if name == "" {
		return "", nil, NewValidationError("name")
	}
	content, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", nil, NewBadRequestError("failed to read request body", err)
	}
	return name, content, nil
}

// HandleGetSession returns the current status of a session
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessions.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession drops a session and its data
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if !h.sessions.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessions.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}
