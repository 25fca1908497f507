package vpts

import "sort"

// Table accumulates normalized rows across one batch run. Rows are unique
// by (radar, datetime, height) and sorted ascending by that key once
// Finalize has run.
type Table struct {
	rows []Row
}

// Append adds rows in processing order. Later appends win on duplicate
// keys when Finalize runs, so callers must append files in ascending path
// order to get the documented deterministic tie-break.
func (t *Table) Append(rows ...Row) {
	t.rows = append(t.rows, rows...)
}

// Len reports the current number of rows, duplicates included until
// Finalize.
func (t *Table) Len() int { return len(t.rows) }

// Rows exposes the accumulated rows.
func (t *Table) Rows() []Row { return t.rows }

// Finalize deduplicates by key, keeping the last-appended occurrence, and
// sorts ascending by (radar, datetime, height).
func (t *Table) Finalize() {
	last := make(map[string]int, len(t.rows))
	for i, row := range t.rows {
		last[row.Key()] = i
	}

	unique := make([]Row, 0, len(last))
	for i, row := range t.rows {
		if last[row.Key()] == i {
			unique = append(unique, row)
		}
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i].Less(unique[j]) })
	t.rows = unique
}
