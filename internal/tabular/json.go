package tabular

import (
	"encoding/json"
	"fmt"
)

type tableJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(tableJSON{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON rebuilds a table from its wire form, revalidating columns
// and row arity.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rebuilt, err := New(raw.Columns)
	if err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	for i, row := range raw.Rows {
		if err := rebuilt.AppendRow(row); err != nil {
			return fmt.Errorf("decode table row %d: %w", i, err)
		}
	}
	*t = *rebuilt
	return nil
}
