// Package dataframe holds the tabular value exchanged between the HTTP
// boundary, local engines, and remote execution services. A Frame keeps an
// explicit column order so results survive a network round trip unchanged.
package dataframe

import (
	"fmt"
	"sort"
)

// Record is one row in row-oriented form, as it appears in JSON payloads.
type Record = map[string]any

// Frame is an ordered-column table of values.
type Frame struct {
	columns []string
	rows    [][]any
}

// New creates an empty frame with the given column order.
func New(columns ...string) *Frame {
	return &Frame{columns: append([]string(nil), columns...)}
}

// FromRecords builds a frame from row-oriented records. Column order is the
// sorted union of all record keys, so the result is deterministic regardless
// of map iteration order; rows missing a key hold nil in that column.
func FromRecords(records []Record) *Frame {
	keys := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			keys[k] = true
		}
	}
	columns := make([]string, 0, len(keys))
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	f := New(columns...)
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		f.rows = append(f.rows, row)
	}
	return f
}

// FromColumns builds a frame from an explicit column order and row values.
// Rows shorter than the column list are padded with nil; longer rows are an
// error.
func FromColumns(columns []string, rows [][]any) (*Frame, error) {
	f := New(columns...)
	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		padded := make([]any, len(columns))
		copy(padded, row)
		f.rows = append(f.rows, padded)
	}
	return f, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Append adds one row. Values beyond the column count are dropped; missing
// values are nil.
func (f *Frame) Append(values ...any) {
	row := make([]any, len(f.columns))
	copy(row, values)
	f.rows = append(f.rows, row)
}

// Row returns the values of row i in column order.
func (f *Frame) Row(i int) []any {
	return append([]any(nil), f.rows[i]...)
}

// Value returns the value at row i, column name. Unknown columns yield nil.
func (f *Frame) Value(i int, column string) any {
	for c, name := range f.columns {
		if name == column {
			return f.rows[i][c]
		}
	}
	return nil
}

// Records converts the frame to row-oriented records.
func (f *Frame) Records() []Record {
	records := make([]Record, 0, len(f.rows))
	for _, row := range f.rows {
		rec := make(Record, len(f.columns))
		for i, c := range f.columns {
			rec[c] = row[i]
		}
		records = append(records, rec)
	}
	return records
}

// Rows returns all row values in column order. The result shares no memory
// with the frame.
func (f *Frame) Rows() [][]any {
	rows := make([][]any, len(f.rows))
	for i, row := range f.rows {
		rows[i] = append([]any(nil), row...)
	}
	return rows
}
