// Package table provides a column-oriented table of scalar values with a fixed
// row count, and the sequence operations the correction passes are built on:
// windowing, grouping by key, stable sorting and splitting at row indices.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when a column does not have the table's row count
	ErrLengthMismatch = errors.New("table: column length mismatch")

	// ErrNoColumn is returned when a named column does not exist
	ErrNoColumn = errors.New("table: no such column")

	// ErrDuplicateColumn is returned when a column name appears twice
	ErrDuplicateColumn = errors.New("table: duplicate column")

	// ErrColumnType is returned when a column holds a value of the wrong type
	ErrColumnType = errors.New("table: wrong value type")
)

// Table is an ordered set of named, equal-length columns.
// The row count is fixed by the first column; every mutation that would
// break it is rejected with ErrLengthMismatch.
type Table struct {
	names []string
	index map[string]int
	cols  [][]Value
	rows  int
}

// New builds a table from column names and column data.
// The columns must all have the same length.
func New(names []string, cols [][]Value) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrLengthMismatch, len(names), len(cols))
	}
	t := &Table{index: make(map[string]int, len(names))}
	for i, name := range names {
		if i == 0 {
			t.rows = len(cols[0])
		}
		if err := t.add(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Empty returns a table with the given columns and no rows
func Empty(names ...string) *Table {
	t := &Table{index: make(map[string]int, len(names))}
	for _, name := range names {
		_ = t.add(name, nil)
	}
	return t
}

func (t *Table) add(name string, col []Value) error {
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
	}
	if len(col) != t.rows {
		return fmt.Errorf("%w: column %s has %d rows, want %d", ErrLengthMismatch, name, len(col), t.rows)
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.cols = append(t.cols, col)
	return nil
}

// Len returns the number of rows
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in order
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the named column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned slice is shared with the table.
func (t *Table) Column(name string) ([]Value, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	return t.cols[i], nil
}

// Get returns a single cell
func (t *Table) Get(name string, row int) (Value, error) {
	col, err := t.Column(name)
	if err != nil {
		return Value{}, err
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("table: row %d out of range [0,%d)", row, t.rows)
	}
	return col[row], nil
}

// Set replaces the named column, appending it when it does not exist yet
func (t *Table) Set(name string, col []Value) error {
	if len(t.cols) == 0 {
		t.rows = len(col)
	}
	if len(col) != t.rows {
		return fmt.Errorf("%w: column %s has %d rows, want %d", ErrLengthMismatch, name, len(col), t.rows)
	}
	if i, ok := t.index[name]; ok {
		t.cols[i] = col
		return nil
	}
	return t.add(name, col)
}

// Drop removes the named column and reports whether it existed
func (t *Table) Drop(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	t.names = append(t.names[:i], t.names[i+1:]...)
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.names); j++ {
		t.index[t.names[j]] = j
	}
	return true
}

// Floats returns the named column converted to float64
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d is %q, want a number", ErrColumnType, name, i, v.String())
		}
		out[i] = f
	}
	return out, nil
}

// Ints returns the named column converted to int
func (t *Table) Ints(name string) ([]int, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(col))
	for i, v := range col {
		n, ok := v.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d is %q, want an integer", ErrColumnType, name, i, v.String())
		}
		out[i] = n
	}
	return out, nil
}

// Strings returns the named column formatted as strings
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = v.String()
	}
	return out, nil
}

// SetFloats replaces (or adds) the named column with float values
func (t *Table) SetFloats(name string, data []float64) error {
	col := make([]Value, len(data))
	for i, f := range data {
		col[i] = FloatValue(f)
	}
	return t.Set(name, col)
}

// SetInts replaces (or adds) the named column with integer values
func (t *Table) SetInts(name string, data []int) error {
	col := make([]Value, len(data))
	for i, n := range data {
		col[i] = IntValue(n)
	}
	return t.Set(name, col)
}

// SetStrings replaces (or adds) the named column with string values
func (t *Table) SetStrings(name string, data []string) error {
	col := make([]Value, len(data))
	for i, s := range data {
		col[i] = StringValue(s)
	}
	return t.Set(name, col)
}

// Fill replaces (or adds) the named column with v repeated on every row
func (t *Table) Fill(name string, v Value) error {
	col := make([]Value, t.rows)
	for i := range col {
		col[i] = v
	}
	return t.Set(name, col)
}

// Row returns the values of one row in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.cols))
	for c, col := range t.cols {
		row[c] = col[i]
	}
	return row
}

// Slice returns a copy of rows [lo, hi)
func (t *Table) Slice(lo, hi int) *Table {
	out := &Table{index: make(map[string]int, len(t.names)), rows: hi - lo}
	for c, name := range t.names {
		col := make([]Value, hi-lo)
		copy(col, t.cols[c][lo:hi])
		out.index[name] = c
		out.names = append(out.names, name)
		out.cols = append(out.cols, col)
	}
	return out
}

// Clone returns a deep copy of t
func (t *Table) Clone() *Table { return t.Slice(0, t.rows) }

// Concat stacks tables vertically. Every table must have the columns of the
// first one; the result keeps the first table's column order.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return Empty(), nil
	}
	names := tables[0].Columns()
	total := 0
	for _, t := range tables {
		total += t.rows
	}
	cols := make([][]Value, len(names))
	for c, name := range names {
		col := make([]Value, 0, total)
		for i, t := range tables {
			src, err := t.Column(name)
			if err != nil {
				return nil, fmt.Errorf("concatenating table %d: %w", i, err)
			}
			col = append(col, src...)
		}
		cols[c] = col
	}
	out, err := New(names, cols)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		out.rows = total
	}
	return out, nil
}
