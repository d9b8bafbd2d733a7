package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotlog-visualizer/backend/internal/models"
	"github.com/robotlog-visualizer/backend/internal/parser"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
server:
  port: 9000
parsing:
  format: flat
  sort_by_time: true
query:
  engine: duckdb
playback:
  interval: 100ms
session:
  timeout: 1h
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, "flat", cfg.ParserFormat())
	assert.True(t, cfg.Parsing.SortByTime)
	assert.Equal(t, models.EngineDuckDB, cfg.Query.Engine)
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.Interval)
	assert.Equal(t, 0.05, cfg.Playback.Step)
	assert.Equal(t, time.Hour, cfg.Session.Timeout)
	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddr())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("BIND_ADDRESS", "127.0.0.1")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUERY_ENGINE", "DuckDB")

	cfg, err := LoadConfig(writeTempFile(t, "config.yaml", "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.GetServerAddr())
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, models.EngineDuckDB, cfg.Query.Engine)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "server: [", "failed to parse"},
		{"unknown format", "parsing:\n  format: mcs\n", "parsing.format"},
		{"unknown engine", "query:\n  engine: sqlite\n", "query.engine"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad step", "playback:\n  step: 0\n", "playback.step"},
		{"zero cleanup interval", "session:\n  cleanup_interval: 0s\n", "session.cleanup_interval"},
		{"negative timeout", "session:\n  timeout: -1m\n", "session.timeout"},
		{"bad level", "advanced:\n  log_level: loud\n", "advanced.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeTempFile(t, "config.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsAllowedFile(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsAllowedFile("match.txt"))
	assert.True(t, cfg.IsAllowedFile("MATCH.TXT"))
	assert.False(t, cfg.IsAllowedFile("match.log"))
	assert.False(t, cfg.IsAllowedFile("txt"))
}

func TestParserFormat(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "", cfg.ParserFormat())
	cfg.Parsing.Format = "info_pair"
	assert.Equal(t, "info_pair", cfg.ParserFormat())
	cfg.Parsing.Format = "AUTO"
	assert.Equal(t, "", cfg.ParserFormat())
	assert.NoError(t, cfg.Validate())
}

func TestParserOptions(t *testing.T) {
	flat := "09:00:00;int;a;1\n09:00:01;int;a;2\n"

	cfg := DefaultConfig()
	res := parser.New(cfg.ParserOptions()...).Parse(flat)
	assert.Equal(t, "flat", res.Format)

	cfg.Parsing.Format = "info_pair"
	res = parser.New(cfg.ParserOptions()...).Parse(flat)
	assert.Equal(t, "info_pair", res.Format)
	assert.Empty(t, res.Data.Entries)
}

func TestStoreOptions(t *testing.T) {
	opts := DefaultConfig().StoreOptions()
	assert.Equal(t, "512MB", opts.MemoryLimit)
	assert.Equal(t, 2, opts.Threads)
	assert.Equal(t, 3, opts.MaxConcurrentQueries)
}
