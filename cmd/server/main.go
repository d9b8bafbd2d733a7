package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/robotlog-visualizer/backend/internal/api"
	"github.com/robotlog-visualizer/backend/internal/config"
	"github.com/robotlog-visualizer/backend/internal/logging"
	"github.com/robotlog-visualizer/backend/internal/session"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "logviz.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the server and blocks until it stops. Deferred cleanup always
// runs before main exits.
func run() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate already rejected unknown levels
	lvl, _ := logging.ParseLevel(cfg.Advanced.LogLevel)
	logging.Configure(lvl, os.Stdout)
	logger := logging.New("server")

	sessionMgr := session.NewManager(session.Options{
		MaxSessions:   cfg.Session.MaxSessions,
		ParserOptions: cfg.ParserOptions(),
		QueryEngine:   cfg.Query.Engine,
		StoreOptions:  cfg.StoreOptions(),
	})
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.Session.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(cfg.Session.Timeout); n > 0 {
					logger.Infof("Cleaned up %d idle sessions", n)
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.New("echo")

	api.SetupMiddleware(e, cfg)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions:    sessionMgr,
		AllowedFile: cfg.IsAllowedFile,
		Playback: api.PlaybackOptions{
			Step:           cfg.Playback.Step,
			Interval:       cfg.Playback.Interval,
			MaxMessageSize: cfg.Advanced.WebSocketMaxMessage,
		},
		Version: Version,
	}))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Robot Log Visualizer Server                     ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Engine:     %-45s║\n", cfg.Query.Engine)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}

// resolveConfigPath honours LOGVIZ_CONFIG, then falls back to a file next to
// the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("LOGVIZ_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), configFileName), nil
}
