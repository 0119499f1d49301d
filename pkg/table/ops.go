package table

import (
	"fmt"
	"sort"
)

// Window returns the half-open range [index-low, index+high) clamped to [0, size).
// Out-of-range input is clamped silently.
func Window(index, low, high, size int) (lo, hi int) {
	lo, hi = index-low, index+high
	if lo < 0 {
		lo = 0
	}
	if hi > size {
		hi = size
	}
	if hi < 0 {
		hi = 0
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// keyColumns resolves the named key columns
func (t *Table) keyColumns(keys []string) ([][]Value, error) {
	cols := make([][]Value, len(keys))
	for i, k := range keys {
		col, err := t.Column(k)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// compareRows compares rows a and b by the key columns in order
func compareRows(cols [][]Value, a, b int) int {
	for _, col := range cols {
		if c := Compare(col[a], col[b]); c != 0 {
			return c
		}
	}
	return 0
}

// GroupBy partitions t into runs of adjacent rows sharing the same key tuple.
// Row order is preserved within and across groups; equal keys that are not
// adjacent form separate groups, so sort by the same keys first to get one
// group per key.
func GroupBy(t *Table, keys ...string) ([]*Table, error) {
	cols, err := t.keyColumns(keys)
	if err != nil {
		return nil, fmt.Errorf("grouping: %w", err)
	}
	var groups []*Table
	start := 0
	for i := 1; i <= t.rows; i++ {
		if i == t.rows || compareRows(cols, start, i) != 0 {
			groups = append(groups, t.Slice(start, i))
			start = i
		}
	}
	return groups, nil
}

// SortBy returns a copy of t stably sorted by the composite key
func SortBy(t *Table, keys ...string) (*Table, error) {
	cols, err := t.keyColumns(keys)
	if err != nil {
		return nil, fmt.Errorf("sorting: %w", err)
	}
	order := make([]int, t.rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return compareRows(cols, order[a], order[b]) < 0
	})
	return t.permute(order), nil
}

// permute returns a copy of t with rows taken in the given order
func (t *Table) permute(order []int) *Table {
	out := &Table{index: make(map[string]int, len(t.names)), rows: len(order)}
	for c, name := range t.names {
		col := make([]Value, len(order))
		for i, src := range order {
			col[i] = t.cols[c][src]
		}
		out.index[name] = c
		out.names = append(out.names, name)
		out.cols = append(out.cols, col)
	}
	return out
}

// SplitAt splits t at the given boundary indices into len(indices)+1 contiguous
// tables. Indices are clamped to [0, Len()]; a boundary that does not advance
// produces an empty table, as a multi-way array split does.
func SplitAt(t *Table, indices []int) []*Table {
	parts := make([]*Table, 0, len(indices)+1)
	start := 0
	for _, idx := range indices {
		end := idx
		if end < start {
			end = start
		}
		if end > t.rows {
			end = t.rows
		}
		parts = append(parts, t.Slice(start, end))
		start = end
	}
	return append(parts, t.Slice(start, t.rows))
}
