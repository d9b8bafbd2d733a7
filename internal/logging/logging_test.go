package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Lvl
		wantErr bool
	}{
		{"debug", log.DEBUG, false},
		{"INFO", log.INFO, false},
		{"", log.INFO, false},
		{" warn ", log.WARN, false},
		{"error", log.ERROR, false},
		{"off", log.OFF, false},
		{"verbose", log.INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	Configure(log.WARN, &buf)
	defer Configure(log.INFO, os.Stdout)

	l := New("Session")
	l.Info("hidden")
	l.Warnf("visible %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[Session]")
	assert.Contains(t, out, "visible 1")
	assert.Equal(t, log.WARN, Level())
}
