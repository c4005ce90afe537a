package reftable

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"biorempp/internal/tabular"
	"biorempp/pkg/platform/sentinel"
)

// undefined_table
const pgUndefinedTable = "42P01"

// PostgresSource reads a reference table from a Postgres query. A fresh
// connection is opened per fetch; loads are rare (startup and explicit
// reloads) so pooling is not worth carrying.
type PostgresSource struct {
	dsn   string
	query string
}

func NewPostgresSource(dsn, query string) (*PostgresSource, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres source requires a dsn")
	}
	if query == "" {
		return nil, fmt.Errorf("postgres source requires a query")
	}
	return &PostgresSource{dsn: dsn, query: query}, nil
}

func (s *PostgresSource) String() string { return "postgres:" + s.query }

func (s *PostgresSource) Fetch(ctx context.Context) (*tabular.Table, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, s.query)
	if err != nil {
		return nil, wrapPgError(err, s.query)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	t, err := tabular.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid result columns: %w", err)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cellString(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err, s.query)
	}
	return t, nil
}

func wrapPgError(err error, query string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("reference query %q: %w", query, sentinel.ErrNotFound)
	}
	return fmt.Errorf("query reference table: %w", err)
}
