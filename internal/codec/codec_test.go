package codec

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestEncodeScalars(t *testing.T) {
	ts := time.Date(2023, 5, 1, 10, 30, 0, 123456000, time.UTC)
	date := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nan", math.NaN(), nil},
		{"nan32", float32(math.NaN()), nil},
		{"duration", 90 * time.Second, "1m30s"},
		{"timestamp", ts, "2023-05-01 10:30:00.123456"},
		{"date", date, "2023-05-01"},
		{"bool", true, true},
		{"int8", int8(-3), int64(-3)},
		{"int", 42, int64(42)},
		{"uint64", uint64(7), int64(7)},
		{"float64", 1.5, 1.5},
		{"float32", float32(2), 2.0},
		{"decimal int", json.Number("12"), int64(12)},
		{"decimal float", json.Number("12.25"), 12.25},
		{"string", "hello", "hello"},
		{"fallback struct", struct{ A int }{1}, "{1}"},
		{"fallback chan", (chan int)(nil), "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeTimestampMicrosecondPadding(t *testing.T) {
	// Six fractional digits must always be present, even when zero.
	ts := time.Date(2023, 5, 1, 10, 30, 1, 0, time.UTC)
	if got := Encode(ts); got != "2023-05-01 10:30:01.000000" {
		t.Errorf("Encode(%v) = %q, want padded microseconds", ts, got)
	}
}

func TestEncodeRecursesIntoContainers(t *testing.T) {
	in := map[string]any{
		"score": math.NaN(),
		"tags":  []any{uint8(1), math.Inf(1)},
	}

	got, ok := Encode(in).(map[string]any)
	if !ok {
		t.Fatalf("Encode returned %T, want map", Encode(in))
	}
	if got["score"] != nil {
		t.Errorf("nested NaN = %v, want nil", got["score"])
	}
	tags := got["tags"].([]any)
	if tags[0] != int64(1) {
		t.Errorf("nested uint8 = %#v, want int64(1)", tags[0])
	}
	if tags[1] != "+Inf" {
		t.Errorf("nested Inf = %#v, want %q", tags[1], "+Inf")
	}
}

// Encode must be total: whatever it returns has to survive json.Marshal.
func TestEncodeTotality(t *testing.T) {
	inputs := []any{
		math.NaN(),
		math.Inf(-1),
		func() {},
		make(chan struct{}),
		struct{ X complex128 }{complex(1, 2)},
		[]any{math.NaN(), func() {}},
		map[string]any{"f": math.Inf(1)},
		time.Now(),
	}

	for _, in := range inputs {
		if _, err := json.Marshal(Encode(in)); err != nil {
			t.Errorf("json.Marshal(Encode(%T)) failed: %v", in, err)
		}
	}
}

func TestEncodeBinary(t *testing.T) {
	got, err := EncodeBinary([]byte("abc"))
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	if got != "YWJj" {
		t.Errorf("EncodeBinary(abc) = %q, want %q", got, "YWJj")
	}

	back, err := DecodeBinary(got)
	if err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}
	if string(back) != "abc" {
		t.Errorf("DecodeBinary round trip = %q, want abc", back)
	}
}

func TestEncodeBinaryRejectsNonBytes(t *testing.T) {
	for _, in := range []any{"abc", 42, []int{1}, nil} {
		_, err := EncodeBinary(in)
		if err == nil {
			t.Errorf("EncodeBinary(%T) succeeded, want error", in)
			continue
		}
		var encErr *BinaryEncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("EncodeBinary(%T) error is %T, want *BinaryEncodingError", in, err)
			continue
		}
		if !strings.Contains(err.Error(), encErr.Type) {
			t.Errorf("error %q does not name offending type %q", err, encErr.Type)
		}
	}
}

func TestDecodeBinaryBadInput(t *testing.T) {
	if _, err := DecodeBinary("!!not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
