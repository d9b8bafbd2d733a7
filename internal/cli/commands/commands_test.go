package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLog = `10:00:00 AM
INFO:speed:Double:3.0;robot.pose:Pose2d:(1.5, -2.5, 0.3)
10:00:01 AM
INFO:speed:Double:4.0;vel:double:oops
10:00:02 AM
INFO:speed:Double:5.0;robot.pose:Pose2d:(2, -1, 0)
stray line
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes cmd with args and returns its stdout
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewParseCommand(), "parse <log-file>", []string{"output", "diagnostics", "format", "sort"}},
		{NewFieldsCommand(), "fields <log-file>", []string{"format", "sort"}},
		{NewValueCommand(), "value <log-file> <field> <time>", []string{"format", "sort"}},
		{NewSeriesCommand(), "series <log-file> <field>", []string{"output", "format", "sort"}},
		{NewVersionCommand(), "version", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.use, tt.cmd.Use)
		for _, f := range tt.flags {
			assert.NotNil(t, tt.cmd.Flags().Lookup(f), "%s missing flag %s", tt.use, f)
		}
	}
}

func TestParse_Text(t *testing.T) {
	path := writeLog(t, testLog)

	out, err := run(t, NewParseCommand(), path, "--diagnostics")
	require.NoError(t, err)

	assert.Contains(t, out, "Format:         info_pair")
	assert.Contains(t, out, "Entries:        6")
	assert.Contains(t, out, "Numeric fields: speed, robot.pose.x, robot.pose.y")
	assert.Contains(t, out, "Pose fields:    robot.pose")
	assert.Contains(t, out, "Duration:       2.000s")
	assert.Contains(t, out, "Skipped:        2")
	assert.Contains(t, out, "line 7:")
	assert.Contains(t, out, "line 4:")
}

func TestParse_JSON(t *testing.T) {
	path := writeLog(t, testLog)

	out, err := run(t, NewParseCommand(), path, "-o", "json")
	require.NoError(t, err)

	var summary parseSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "info_pair", summary.Format)
	assert.Equal(t, 6, summary.Entries)
	assert.Equal(t, 3, summary.Fields)
	assert.Equal(t, 2.0, summary.MaxTime)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, summary.Diagnostics)
}

func TestParse_Errors(t *testing.T) {
	path := writeLog(t, testLog)

	_, err := run(t, NewParseCommand(), path, "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, NewParseCommand(), path, "--format", "csv")
	assert.ErrorContains(t, err, "format not found")

	_, err = run(t, NewParseCommand(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to open file")

	_, err = run(t, NewParseCommand())
	assert.Error(t, err)
}

func TestParse_FlatFormat(t *testing.T) {
	path := writeLog(t, "9:00:00;Double;speed;1\n9:00:02;Double;speed;2\n")

	out, err := run(t, NewParseCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:         flat")
	assert.Contains(t, out, "Entries:        2")
}

func TestFields(t *testing.T) {
	path := writeLog(t, testLog)

	out, err := run(t, NewFieldsCommand(), path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"  numeric speed",
		"* numeric robot.pose.x",
		"* numeric robot.pose.y",
		"  pose    robot.pose",
		"",
	}, "\n"), out)
}

func TestValue(t *testing.T) {
	path := writeLog(t, testLog)

	tests := []struct {
		name string
		args []string
		want string
		code int
	}{
		{"between samples", []string{path, "speed", "1.5"}, "speed @ 1.5s = 4.000\n", 0},
		{"pose component", []string{path, "robot.pose.y", "2"}, "robot.pose.y @ 2s = -1.000\n", 0},
		{"before first sample", []string{path, "speed", "--", "-1"}, "speed @ -1s: no value\n", 1},
		{"unknown field", []string{path, "nothing", "1"}, "nothing @ 1s: no value\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, NewValueCommand(), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.code, ExitCode)
		})
	}

	odom := writeLog(t, "10:00:00 AM\nINFO:odom.x:Double:3;odom:Pose2d:(9, 8, 0)\n")
	out, err := run(t, NewValueCommand(), odom, "odom.x", "0")
	require.NoError(t, err)
	assert.Equal(t, "odom.x @ 0s = 3.000\n", out)
	assert.Equal(t, 0, ExitCode)

	_, err = run(t, NewValueCommand(), path, "speed", "soon")
	assert.ErrorContains(t, err, "invalid time")
}

func TestFormatFlag(t *testing.T) {
	path := writeLog(t, testLog)

	for _, format := range []string{"auto", "AUTO", "info_pair"} {
		t.Run(format, func(t *testing.T) {
			out, err := run(t, NewValueCommand(), "--format", format, path, "speed", "1.5")
			require.NoError(t, err)
			assert.Equal(t, "speed @ 1.5s = 4.000\n", out)
			assert.Equal(t, 0, ExitCode)
		})
	}

	assert.Equal(t, "auto", NewValueCommand().Flags().Lookup("format").DefValue)
}

func TestSeries(t *testing.T) {
	path := writeLog(t, testLog)

	out, err := run(t, NewSeriesCommand(), path, "robot.pose.x")
	require.NoError(t, err)
	assert.Equal(t, "time,robot.pose.x\n0,1.5\n2,2\n", out)

	out, err = run(t, NewSeriesCommand(), path, "vel")
	require.NoError(t, err)
	assert.Equal(t, "time,vel\n1,NaN\n", out)

	out, err = run(t, NewSeriesCommand(), path, "vel", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":1,"value":null}]`, out)

	out, err = run(t, NewSeriesCommand(), path, "nothing", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = run(t, NewSeriesCommand(), path, "speed", "-o", "xml")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Equal(t, "logviz dev\n", out)
}
