package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The extraction service returns JSON with loosely typed fields: numbers
// arrive as strings, single values where lists are expected, null almost
// anywhere. The types below absorb those shapes at decode time so the rest
// of the pipeline only ever sees canonical values.

// FlexString decodes a JSON string, number, or bool into a string.
// Null, objects, and arrays decode to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = FlexString(strings.TrimSpace(str))
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = FlexString(num.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = FlexString(strconv.FormatBool(b))
		return nil
	}

	*s = ""
	return nil
}

// FlexBool decodes a JSON bool, "true"/"yes"-style string, or number.
// Anything else decodes to false.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "true", "yes", "1":
			*b = true
		default:
			*b = false
		}
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*b = num != 0
		return nil
	}

	*b = false
	return nil
}

// FlexInt decodes a JSON number, numeric string, or null into an optional
// integer. Valid is false when the field was absent, null, or unparseable.
type FlexInt struct {
	Value int
	Valid bool
}

// Int wraps a plain value as a valid FlexInt.
func Int(v int) FlexInt {
	return FlexInt{Value: v, Valid: true}
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexInt{}
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			*f = FlexInt{Value: int(i), Valid: true}
			return nil
		}
		if fl, err := num.Float64(); err == nil {
			*f = FlexInt{Value: int(fl), Valid: true}
			return nil
		}
		*f = FlexInt{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		str = strings.TrimSpace(str)
		if i, err := strconv.Atoi(str); err == nil {
			*f = FlexInt{Value: i, Valid: true}
			return nil
		}
		if fl, err := strconv.ParseFloat(str, 64); err == nil {
			*f = FlexInt{Value: int(fl), Valid: true}
			return nil
		}
	}

	*f = FlexInt{}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// FlexFloat decodes a JSON number, "$250,000"-style string, or null into an
// optional float. Valid is false when absent, null, or unparseable.
type FlexFloat struct {
	Value float64
	Valid bool
}

// Float wraps a plain value as a valid FlexFloat.
func Float(v float64) FlexFloat {
	return FlexFloat{Value: v, Valid: true}
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat{Value: num, Valid: true}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		cleaned := strings.TrimSpace(str)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			*f = FlexFloat{Value: v, Valid: true}
			return nil
		}
	}

	*f = FlexFloat{}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// StringList decodes a JSON array, a bare string, or null into a string
// slice. Scalar array elements are coerced to strings; object and array
// elements are dropped. Empty strings are dropped.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			var s FlexString
			if err := json.Unmarshal(r, &s); err != nil {
				continue
			}
			if s != "" {
				out = append(out, string(s))
			}
		}
		*l = out
		return nil
	}

	var s FlexString
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		*l = []string{string(s)}
		return nil
	}

	*l = nil
	return nil
}
