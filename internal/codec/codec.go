// Package codec normalizes engine-produced values into JSON-representable
// form before they cross a process boundary (HTTP response body, RPC
// payload). Encode is total: it never fails, falling back to the value's
// default textual representation for anything it does not recognize.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	timestampFormat = "2006-01-02 15:04:05.000000"
	dateFormat      = "2006-01-02"
)

// Encode converts v into a value that json.Marshal can always serialize.
// Rules are evaluated in order, first match wins:
//
//  1. NaN encodes to null
//  2. durations encode to their canonical string form
//  3. timestamps encode to "YYYY-MM-DD HH:MM:SS.ffffff"
//  4. dates (zero clock) encode to "YYYY-MM-DD"
//  5. booleans pass through
//  6. integers of any width encode to int64
//  7. floats and decimal strings encode to float64
//  8. everything else is stringified
//
// Maps and slices are encoded element-wise.
func Encode(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return encodeFloat(x)
	case float32:
		return encodeFloat(float64(x))
	case time.Duration:
		return x.String()
	case time.Time:
		if isDateOnly(x) {
			return x.Format(dateFormat)
		}
		return x.Format(timestampFormat)
	case bool:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case json.Number:
		return encodeNumber(x)
	case string:
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Encode(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Encode(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, rec := range x {
			out[i] = Encode(rec)
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

func encodeFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	// Infinities have no JSON representation; stringify rather than let a
	// later json.Marshal fail.
	if math.IsInf(f, 0) {
		return fmt.Sprintf("%v", f)
	}
	return f
}

func encodeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return encodeFloat(f)
	}
	return n.String()
}

// isDateOnly reports whether t carries no time-of-day component.
func isDateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// BinaryEncodingError is returned by EncodeBinary for inputs that are not
// byte sequences.
type BinaryEncodingError struct {
	Type string
}

func (e *BinaryEncodingError) Error() string {
	return "no encoding handler for data type " + e.Type
}

// EncodeBinary converts a byte sequence to its Base64 text form for
// embedding in JSON-bearing payloads, e.g. exported model artifacts. Unlike
// Encode it is strict: any non-byte input is an error, because silently
// stringifying binary data would corrupt it.
func EncodeBinary(v any) (string, error) {
	b, ok := v.([]byte)
	if !ok {
		return "", &BinaryEncodingError{Type: fmt.Sprintf("%T", v)}
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeBinary reverses EncodeBinary.
func DecodeBinary(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode binary payload: %w", err)
	}
	return b, nil
}
