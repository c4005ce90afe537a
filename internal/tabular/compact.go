package tabular

// CompactStats summarizes a Compact pass.
type CompactStats struct {
	Cells    int
	Distinct int
}

// Compact interns cell values through a shared pool so repeated strings in
// low-cardinality columns share one backing allocation. Logical values are
// unchanged; the table should not be mutated afterwards.
func (t *Table) Compact() CompactStats {
	pool := make(map[string]string)
	stats := CompactStats{}
	for _, row := range t.rows {
		for i, v := range row {
			stats.Cells++
			if interned, ok := pool[v]; ok {
				row[i] = interned
				continue
			}
			pool[v] = v
			stats.Distinct++
		}
	}
	return stats
}
