// Package config provides YAML-based configuration for the backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotlog-visualizer/backend/internal/logging"
	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/parser"
	"github.com/robotlog-visualizer/backend/internal/store"
)

// FormatAuto selects the log format by detection.
const FormatAuto = parser.FormatAuto

// AppConfig is the root configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Parsing  ParsingConfig  `yaml:"parsing"`
	Query    QueryConfig    `yaml:"query"`
	Playback PlaybackConfig `yaml:"playback"`
	Session  SessionConfig  `yaml:"session"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	BindAddress  string        `yaml:"bind_address"`
	EnableCORS   bool          `yaml:"enable_cors"`
	AllowOrigins []string      `yaml:"allow_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	BodyLimit    string        `yaml:"body_limit"`
	EnableGzip   bool          `yaml:"enable_gzip"`
}

// ParsingConfig contains log parsing settings
type ParsingConfig struct {
	Format            string   `yaml:"format"` // "auto" or a format name
	SortByTime        bool     `yaml:"sort_by_time"`
	SampleSize        int      `yaml:"sample_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// QueryConfig selects and tunes the query backend
type QueryConfig struct {
	Engine               string `yaml:"engine"`
	DuckDBThreads        int    `yaml:"duckdb_threads"`
	DuckDBMemoryLimit    string `yaml:"duckdb_memory_limit"`
	MaxConcurrentQueries int    `yaml:"max_concurrent_queries"`
}

// PlaybackConfig contains playback clock settings
type PlaybackConfig struct {
	Step     float64       `yaml:"step"`
	Interval time.Duration `yaml:"interval"`
}

// SessionConfig contains session lifetime settings
type SessionConfig struct {
	MaxSessions     int           `yaml:"max_sessions"`
	Timeout         time.Duration `yaml:"timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"log_level"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
	WebSocketMaxMessage  int64  `yaml:"websocket_max_message_bytes"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BodyLimit:    "256M",
			EnableGzip:   true,
		},
		Parsing: ParsingConfig{
			Format:            FormatAuto,
			SortByTime:        false,
			SampleSize:        parser.DefaultSampleSize,
			AllowedExtensions: []string{".txt"},
		},
		Query: QueryConfig{
			Engine:               models.EngineScan,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "512MB",
			MaxConcurrentQueries: 3,
		},
		Playback: PlaybackConfig{
			Step:     0.05,
			Interval: 50 * time.Millisecond,
		},
		Session: SessionConfig{
			MaxSessions:     20,
			Timeout:         30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			WebSocketMaxMessage:  4096,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating it with
// defaults on first run.
func LoadConfig(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	header := []byte("# Robot Log Visualizer configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Advanced.LogLevel = lvl
	}
	if engine := os.Getenv("QUERY_ENGINE"); engine != "" {
		c.Query.Engine = strings.ToLower(engine)
	}
}

// Validate checks the configuration for errors.
func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}

	if c.Parsing.Format != "" && !strings.EqualFold(c.Parsing.Format, FormatAuto) {
		if _, err := parser.NewRegistry().GetFormatByName(c.Parsing.Format); err != nil {
			return fmt.Errorf("parsing.format: %w", err)
		}
	}
	if c.Parsing.SampleSize < 1 {
		return errors.New("parsing.sample_size: must be >= 1")
	}

	switch c.Query.Engine {
	case models.EngineScan, models.EngineDuckDB:
	default:
		return fmt.Errorf("query.engine: invalid engine %q (must be scan or duckdb)", c.Query.Engine)
	}

	if c.Playback.Step <= 0 {
		return errors.New("playback.step: must be > 0")
	}
	if c.Playback.Interval <= 0 {
		return errors.New("playback.interval: must be > 0")
	}

	if c.Session.MaxSessions < 1 {
		return errors.New("session.max_sessions: must be >= 1")
	}
	if c.Session.Timeout <= 0 {
		return errors.New("session.timeout: must be > 0")
	}
	if c.Session.CleanupInterval <= 0 {
		return errors.New("session.cleanup_interval: must be > 0")
	}

	if _, err := logging.ParseLevel(c.Advanced.LogLevel); err != nil {
		return fmt.Errorf("advanced.log_level: %w", err)
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// ParserFormat returns the forced format name, or "" for detection.
func (c *AppConfig) ParserFormat() string {
	if strings.EqualFold(c.Parsing.Format, FormatAuto) {
		return ""
	}
	return c.Parsing.Format
}

// ParserOptions returns the parser options selected by the parsing section.
func (c *AppConfig) ParserOptions() []parser.Option {
	opts := []parser.Option{
		parser.WithSortByTime(c.Parsing.SortByTime),
		parser.WithSampleSize(c.Parsing.SampleSize),
	}
	if format := c.ParserFormat(); format != "" {
		opts = append(opts, parser.WithFormat(format))
	}
	return opts
}

// StoreOptions returns the DuckDB tuning of the query section.
func (c *AppConfig) StoreOptions() store.Options {
	return store.Options{
		MemoryLimit:          c.Query.DuckDBMemoryLimit,
		Threads:              c.Query.DuckDBThreads,
		MaxConcurrentQueries: c.Query.MaxConcurrentQueries,
	}
}

// IsAllowedFile reports whether a file name has an accepted extension.
func (c *AppConfig) IsAllowedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range c.Parsing.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
