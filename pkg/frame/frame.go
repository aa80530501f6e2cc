// Package frame provides the tabular value that tools return and that
// generated code yields. It is deliberately small: named columns and
// row-major cells of arbitrary scalar values.
package frame

import (
	"fmt"
	"strconv"
)

// Frame is a table of rows with named columns. A nil *Frame behaves like
// an empty table.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// New creates a Frame. Rows shorter than the column list are padded with
// nil cells; longer rows are truncated.
func New(columns []string, rows [][]any) *Frame {
	f := &Frame{Columns: append([]string(nil), columns...)}
	for _, r := range rows {
		f.Append(r...)
	}
	return f
}

// FromRecords builds a Frame from a list of records. Columns follow the
// given order; keys missing from a record become nil cells.
func FromRecords(columns []string, records []map[string]any) *Frame {
	f := &Frame{Columns: append([]string(nil), columns...)}
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// Append adds one row.
func (f *Frame) Append(cells ...any) {
	row := make([]any, len(f.Columns))
	copy(row, cells)
	f.Rows = append(f.Rows, row)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool { return f.Len() == 0 }

// Head returns a frame with at most the first n rows. Row cells are shared
// with the receiver; appending to the result never touches the receiver.
func (f *Frame) Head(n int) *Frame {
	if f == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n:n]}
}

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	if f == nil {
		return -1
	}
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column.
func (f *Frame) Column(name string) ([]any, bool) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Floats returns the named column converted to float64. Cells that cannot be
// converted produce an error naming the row.
func (f *Frame) Floats(name string) ([]float64, error) {
	cells, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := ToFloat(c)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Strings returns the named column formatted as strings.
func (f *Frame) Strings(name string) ([]string, error) {
	cells, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Format(c)
	}
	return out, nil
}

// Records returns the rows as column-keyed maps.
func (f *Frame) Records() []map[string]any {
	if f == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(f.Rows))
	for _, r := range f.Rows {
		rec := make(map[string]any, len(f.Columns))
		for i, c := range f.Columns {
			rec[c] = r[i]
		}
		out = append(out, rec)
	}
	return out
}

// ToFloat converts a numeric or numeric-string cell to float64.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	case nil:
		return 0, fmt.Errorf("nil value")
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// Format renders a cell for display. Nil cells render as empty strings.
func Format(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}
