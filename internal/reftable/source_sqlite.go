package reftable

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"biorempp/internal/tabular"
	"biorempp/pkg/platform/sentinel"
)

// SQLiteSource reads a reference table from a bundled SQLite database.
type SQLiteSource struct {
	path  string
	query string
}

func NewSQLiteSource(path, query string) (*SQLiteSource, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite source requires a database path")
	}
	if query == "" {
		return nil, fmt.Errorf("sqlite source requires a query")
	}
	return &SQLiteSource{path: path, query: query}, nil
}

func (s *SQLiteSource) String() string { return "sqlite:" + s.path }

func (s *SQLiteSource) Fetch(ctx context.Context) (*tabular.Table, error) {
	// sql.Open is lazy, so check the file up front for a crisp missing-resource error.
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("reference database %s: %w", s.path, sentinel.ErrNotFound)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query reference table: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	t, err := tabular.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid result columns: %w", err)
	}

	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		cells := make([]string, len(raw))
		for i, v := range raw {
			cells[i] = cellString(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}
