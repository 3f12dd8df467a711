package dataframe

import (
	"reflect"
	"testing"
)

func TestFromRecordsDeterministicColumns(t *testing.T) {
	records := []Record{
		{"b": 2, "a": 1},
		{"c": 3, "a": 4},
	}

	f := FromRecords(records)

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(f.Columns(), want) {
		t.Errorf("Columns() = %v, want %v", f.Columns(), want)
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	if f.Value(0, "c") != nil {
		t.Errorf("missing key should be nil, got %v", f.Value(0, "c"))
	}
	if f.Value(1, "a") != 4 {
		t.Errorf("Value(1, a) = %v, want 4", f.Value(1, "a"))
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	f := New("x", "y")
	f.Append(1, "one")
	f.Append(2, "two")

	records := f.Records()
	want := []Record{
		{"x": 1, "y": "one"},
		{"x": 2, "y": "two"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("Records() = %v, want %v", records, want)
	}
}

func TestFromColumnsPreservesOrder(t *testing.T) {
	f, err := FromColumns([]string{"z", "a"}, [][]any{{1, 2}, {3}})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}

	if !reflect.DeepEqual(f.Columns(), []string{"z", "a"}) {
		t.Errorf("Columns() = %v, want [z a]", f.Columns())
	}
	if f.Value(1, "a") != nil {
		t.Errorf("short row should pad with nil, got %v", f.Value(1, "a"))
	}
}

func TestFromColumnsRejectsWideRows(t *testing.T) {
	_, err := FromColumns([]string{"a"}, [][]any{{1, 2}})
	if err == nil {
		t.Error("expected error for row wider than columns")
	}
}

func TestAppendTruncatesAndPads(t *testing.T) {
	f := New("a", "b")
	f.Append(1)
	f.Append(1, 2, 3)

	if f.Value(0, "b") != nil {
		t.Errorf("padded value = %v, want nil", f.Value(0, "b"))
	}
	if got := f.Row(1); len(got) != 2 {
		t.Errorf("Row(1) has %d values, want 2", len(got))
	}
}

func TestValueUnknownColumn(t *testing.T) {
	f := New("a")
	f.Append(1)
	if f.Value(0, "nope") != nil {
		t.Error("unknown column should yield nil")
	}
}
