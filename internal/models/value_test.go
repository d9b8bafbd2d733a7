package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"number", NumberValue(4.5), `4.5`},
		{"nan", NumberValue(math.NaN()), `null`},
		{"bool", BoolValue(true), `true`},
		{"pose", PoseValue(Pose2d{X: 1, Y: -2, Heading: 0.5}), `{"x":1,"y":-2,"heading":0.5}`},
		{"pose with nan", PoseValue(Pose2d{X: math.NaN(), Y: 2, Heading: 0}), `{"x":null,"y":2,"heading":0}`},
		{"string", StringValue("auto"), `"auto"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":null,"heading":3}`), &v))
	require.True(t, v.IsPose())
	assert.Equal(t, 1.0, v.Pose.X)
	assert.True(t, math.IsNaN(v.Pose.Y))

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsNaN())

	require.NoError(t, json.Unmarshal([]byte(`false`), &v))
	assert.Equal(t, BoolValue(false), v)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "1.500", NumberValue(1.5).String())
	assert.Equal(t, "NaN", NumberValue(math.NaN()).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, `{"x":1,"y":2,"heading":3}`, PoseValue(Pose2d{X: 1, Y: 2, Heading: 3}).String())
}

func TestValue_EncodeMsgpack(t *testing.T) {
	b, err := msgpack.Marshal(NumberValue(2.5))
	require.NoError(t, err)
	var f float64
	require.NoError(t, msgpack.Unmarshal(b, &f))
	assert.Equal(t, 2.5, f)

	b, err = msgpack.Marshal(PoseValue(Pose2d{X: 1, Y: 2, Heading: 3}))
	require.NoError(t, err)
	var p Pose2d
	require.NoError(t, msgpack.Unmarshal(b, &p))
	assert.Equal(t, Pose2d{X: 1, Y: 2, Heading: 3}, p)

	b, err = msgpack.Marshal(StringValue("auto"))
	require.NoError(t, err)
	var s string
	require.NoError(t, msgpack.Unmarshal(b, &s))
	assert.Equal(t, "auto", s)
}

func TestSeriesPoint_MarshalJSON(t *testing.T) {
	b, err := json.Marshal([]SeriesPoint{{Time: 0, Value: 1}, {Time: 1, Value: math.NaN()}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":0,"value":1},{"time":1,"value":null}]`, string(b))
}

func TestParsedData_FieldCount(t *testing.T) {
	d := NewParsedData()
	d.Entries = append(d.Entries,
		LogEntry{Name: "a"}, LogEntry{Name: "b"}, LogEntry{Name: "a"},
	)
	assert.Equal(t, 2, d.FieldCount())
}
