// Package logging builds the leveled component loggers used across the
// backend. Loggers share one level and output, set once at startup.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

// Header is the line prefix of every component logger.
const Header = "${time_rfc3339} ${level} [${prefix}]"

var (
	mu     sync.RWMutex
	level  = log.INFO
	output io.Writer = os.Stdout
)

// Configure sets the level and output for loggers created afterwards.
func Configure(lvl log.Lvl, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	if w != nil {
		output = w
	}
}

// Level returns the configured level.
func Level() log.Lvl {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// New creates a logger whose lines carry the given component prefix.
func New(prefix string) *log.Logger {
	mu.RLock()
	defer mu.RUnlock()

	l := log.New(prefix)
	l.SetHeader(Header)
	l.SetLevel(level)
	l.SetOutput(output)
	return l
}

// ParseLevel converts a level name (debug, info, warn, error, off).
func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, nil
	case "info", "":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return log.INFO, fmt.Errorf("unknown log level: %q", s)
}
