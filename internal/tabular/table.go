// Package tabular provides the plain row/column structure shared by the
// reference table loaders, the merge stages and the export writers.
// Downstream consumers iterate a Table without depending on where it was
// loaded from.
package tabular

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over row-major string cells.
// Column names are normalized to lowercase at construction. Once a table
// has been loaded and compacted it is treated as immutable and may be read
// concurrently.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds an empty table with the given columns. Names are trimmed and
// lowercased; empty or duplicate names are rejected.
func New(columns []string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table requires at least one column")
	}
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		name := strings.ToLower(strings.TrimSpace(c))
		if name == "" {
			return nil, fmt.Errorf("empty column name at position %d", len(t.columns))
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	return t, nil
}

// MustNew is a construction helper for fixed column sets in tests and
// stage builders.
func MustNew(columns []string) *Table {
	t, err := New(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order. The slice is a copy.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[normalize(name)]
	return ok
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[normalize(name)]; ok {
		return i
	}
	return -1
}

func (t *Table) NumColumns() int { return len(t.columns) }

func (t *Table) NumRows() int { return len(t.rows) }

// Row returns the backing cell slice for row i. Callers must not modify it.
func (t *Table) Row(i int) []string { return t.rows[i] }

// Cell returns the value at (row, column); ok is false when the column does
// not exist.
func (t *Table) Cell(row int, column string) (string, bool) {
	i, ok := t.index[normalize(column)]
	if !ok {
		return "", false
	}
	return t.rows[row][i], true
}

// AppendRow adds a row; the cell count must match the column count.
func (t *Table) AppendRow(cells []string) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	t.rows = append(t.rows, cells)
	return nil
}

// Select returns a new table restricted to the given columns, preserving
// row order.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		i := t.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx = append(idx, i)
	}
	out, err := New(columns)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		cells := make([]string, len(idx))
		for j, i := range idx {
			cells[j] = row[i]
		}
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// DistinctBy returns a new table holding the first occurrence of every
// distinct combination of the given columns, projected to those columns.
func (t *Table) DistinctBy(columns ...string) (*Table, error) {
	projected, err := t.Select(columns...)
	if err != nil {
		return nil, err
	}
	out, err := New(columns)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(projected.rows))
	for _, row := range projected.rows {
		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// FirstBy returns a new table keeping, for every distinct combination of
// the given columns, the first full row carrying it. All columns are
// preserved. Joining against a FirstBy-reduced table yields at most one
// match per key.
func (t *Table) FirstBy(columns ...string) (*Table, error) {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		i := t.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx = append(idx, i)
	}
	out, err := New(t.columns)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var sb strings.Builder
	for _, row := range t.rows {
		sb.Reset()
		for j, i := range idx {
			if j > 0 {
				sb.WriteByte('\x1f')
			}
			sb.WriteString(row[i])
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// MissingColumns returns the names from required that are absent, in the
// order given.
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
