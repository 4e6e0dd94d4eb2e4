package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldKind tags the JSON type of an inbound field value.
type FieldKind int

const (
	FieldNull FieldKind = iota
	FieldNumber
	FieldString
	FieldBool
	FieldOther // arrays and objects
)

func (k FieldKind) String() string {
	switch k {
	case FieldNull:
		return "null"
	case FieldNumber:
		return "number"
	case FieldString:
		return "string"
	case FieldBool:
		return "bool"
	default:
		return "other"
	}
}

// FieldValue is one value from a metric's field map. Telegraf emits numbers,
// strings and booleans side by side, so the value is kept tagged until extraction
// narrows it to a float.
type FieldValue struct {
	kind FieldKind
	num  float64
	str  string
	b    bool
}

// NumberValue returns a numeric FieldValue.
func NumberValue(v float64) FieldValue { return FieldValue{kind: FieldNumber, num: v} }

// StringValue returns a string FieldValue.
func StringValue(s string) FieldValue { return FieldValue{kind: FieldString, str: s} }

// BoolValue returns a boolean FieldValue.
func BoolValue(b bool) FieldValue { return FieldValue{kind: FieldBool, b: b} }

// Kind returns the JSON type tag.
func (v FieldValue) Kind() FieldKind { return v.kind }

// Float returns the value as float64 when it was a JSON number. Strings such as
// "21.5" are not coerced.
func (v FieldValue) Float() (float64, bool) {
	if v.kind != FieldNumber {
		return 0, false
	}
	return v.num, true
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("field value: empty input")
	}
	switch data[0] {
	case 'n':
		*v = FieldValue{kind: FieldNull}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("field value: %w", err)
		}
		*v = BoolValue(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("field value: %w", err)
		}
		*v = StringValue(s)
		return nil
	case '[', '{':
		*v = FieldValue{kind: FieldOther}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		// Out of float64 range; treated as non-numeric rather than failing the whole body.
		*v = FieldValue{kind: FieldOther}
		return nil
	}
	*v = NumberValue(f)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FieldNumber:
		return json.Marshal(v.num)
	case FieldString:
		return json.Marshal(v.str)
	case FieldBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}
