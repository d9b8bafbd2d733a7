package models

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// ValueKind tags the payload carried by a Value.
type ValueKind string

const (
	ValueKindNumber  ValueKind = "number"
	ValueKindBoolean ValueKind = "boolean"
	ValueKindPose    ValueKind = "pose"
	ValueKindString  ValueKind = "string"
)

// Value is the decoded payload of a log field.
// Only the member matching Kind is meaningful.
type Value struct {
	Kind   ValueKind
	Number float64
	Bool   bool
	Pose   Pose2d
	Text   string
}

func NumberValue(f float64) Value { return Value{Kind: ValueKindNumber, Number: f} }
func BoolValue(b bool) Value      { return Value{Kind: ValueKindBoolean, Bool: b} }
func PoseValue(p Pose2d) Value    { return Value{Kind: ValueKindPose, Pose: p} }
func StringValue(s string) Value  { return Value{Kind: ValueKindString, Text: s} }

// IsNumber reports whether the value is numeric. NaN still counts as numeric.
func (v Value) IsNumber() bool { return v.Kind == ValueKindNumber }

// IsPose reports whether the value is a 2D pose.
func (v Value) IsPose() bool { return v.Kind == ValueKindPose }

// IsNaN reports whether the value is the NaN sentinel of a failed numeric parse.
func (v Value) IsNaN() bool { return v.Kind == ValueKindNumber && math.IsNaN(v.Number) }

// Interface returns the natural Go representation: float64, bool, Pose2d or string.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueKindNumber:
		return v.Number
	case ValueKindBoolean:
		return v.Bool
	case ValueKindPose:
		return v.Pose
	default:
		return v.Text
	}
}

// String formats the value for text output. Numbers use three decimals, like the live readout.
func (v Value) String() string {
	switch v.Kind {
	case ValueKindNumber:
		if math.IsNaN(v.Number) {
			return "NaN"
		}
		return strconv.FormatFloat(v.Number, 'f', 3, 64)
	case ValueKindBoolean:
		return strconv.FormatBool(v.Bool)
	case ValueKindPose:
		b, _ := json.Marshal(v.Pose)
		return string(b)
	default:
		return v.Text
	}
}

// MarshalJSON encodes the natural JSON shape. NaN has no JSON form and becomes null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindNumber:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Number)
	case ValueKindBoolean:
		return json.Marshal(v.Bool)
	case ValueKindPose:
		return json.Marshal(v.Pose)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON restores a Value from its natural JSON shape. null decodes to NaN.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NumberValue(math.NaN())
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	case map[string]interface{}:
		var p Pose2d
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*v = PoseValue(p)
	default:
		*v = StringValue(string(data))
	}
	return nil
}

var _ msgpack.CustomEncoder = Value{}

// EncodeMsgpack encodes the natural shape; msgpack carries NaN natively.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.Kind {
	case ValueKindNumber:
		return enc.EncodeFloat64(v.Number)
	case ValueKindBoolean:
		return enc.EncodeBool(v.Bool)
	case ValueKindPose:
		return enc.Encode(v.Pose)
	default:
		return enc.EncodeString(v.Text)
	}
}
