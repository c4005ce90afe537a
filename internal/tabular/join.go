package tabular

import (
	dErrors "biorempp/pkg/domain-errors"
)

// JoinKind selects how unmatched left rows are handled.
type JoinKind int

const (
	// InnerJoin keeps only left rows with at least one match.
	InnerJoin JoinKind = iota
	// LeftJoin keeps every left row, filling right columns with empty
	// strings when no match exists.
	LeftJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	default:
		return "unknown"
	}
}

// Join performs a hash join of left and right on the named key column.
// The output carries every left column followed by the right columns that
// do not collide with a left column name; the key column appears once.
// When a key matches multiple right rows, one output row is produced per
// match.
func Join(left, right *Table, column string, kind JoinKind) (*Table, error) {
	key := normalize(column)
	leftIdx := left.ColumnIndex(key)
	if leftIdx < 0 {
		return nil, dErrors.Newf(dErrors.CodeJoinColumnMissing, "join column %q missing from input table", key)
	}
	rightIdx := right.ColumnIndex(key)
	if rightIdx < 0 {
		return nil, dErrors.Newf(dErrors.CodeJoinColumnMissing, "join column %q missing from reference table", key)
	}

	// Right columns that survive: everything not already present on the left.
	var carried []int
	outCols := left.Columns()
	for i, name := range right.columns {
		if left.HasColumn(name) {
			continue
		}
		carried = append(carried, i)
		outCols = append(outCols, name)
	}

	out, err := New(outCols)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]int, right.NumRows())
	for i, row := range right.rows {
		v := row[rightIdx]
		byKey[v] = append(byKey[v], i)
	}

	for _, lrow := range left.rows {
		matches := byKey[lrow[leftIdx]]
		if len(matches) == 0 {
			if kind == LeftJoin {
				cells := make([]string, len(outCols))
				copy(cells, lrow)
				out.rows = append(out.rows, cells)
			}
			continue
		}
		for _, ri := range matches {
			cells := make([]string, 0, len(outCols))
			cells = append(cells, lrow...)
			rrow := right.rows[ri]
			for _, ci := range carried {
				cells = append(cells, rrow[ci])
			}
			out.rows = append(out.rows, cells)
		}
	}
	return out, nil
}
