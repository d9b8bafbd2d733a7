// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/robotlog-visualizer/backend/internal/config"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions    SessionManager
	AllowedFile func(name string) bool
	Playback    PlaybackOptions
	Version     string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Session  SessionHandler
	Query    QueryHandler
	Playback PlaybackHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Sessions),
		Session:  NewSessionHandler(deps.Sessions, deps.AllowedFile),
		Query:    NewQueryHandler(deps.Sessions),
		Playback: NewWebSocketHandler(deps.Sessions, deps.Playback),
	}
}

// RegisterRoutes registers all API routes under /api
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Session lifetime
	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Session.HandleCreateSession)
	sessions.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessions.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessions.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)

	// Queries
	sessions.GET("/:sessionId/fields", handlers.Query.HandleGetFields)
	sessions.GET("/:sessionId/value", handlers.Query.HandleGetValue)
	sessions.GET("/:sessionId/values", handlers.Query.HandleGetValues)
	sessions.GET("/:sessionId/pose", handlers.Query.HandleGetPose)
	sessions.GET("/:sessionId/series", handlers.Query.HandleGetSeries)
	sessions.GET("/:sessionId/chart", handlers.Query.HandleGetChart)
	sessions.GET("/:sessionId/stats", handlers.Query.HandleGetStats)
	sessions.GET("/:sessionId/diagnostics", handlers.Query.HandleGetDiagnostics)

	// Playback websocket
	sessions.GET("/:sessionId/playback", handlers.Playback.HandlePlayback)
}

// SetupMiddleware configures common middleware from the server config
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") || path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	// Compression middleware
	if cfg.Server.EnableGzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/playback")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := cfg.Server.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
