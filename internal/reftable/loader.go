package reftable

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"biorempp/internal/tabular"
	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/sentinel"
)

// Loader is the one-method contract merge stages depend on.
type Loader interface {
	Load(ctx context.Context) (*tabular.Table, error)
}

// TableLoader loads one reference table lazily, validates its schema,
// compacts it and serves the cached copy. Concurrent first loads are
// deduplicated; after a successful load the table is immutable and safe
// for concurrent reads.
type TableLoader struct {
	name     string
	source   Source
	required []string
	joinCol  string
	logger   *slog.Logger

	mu    sync.RWMutex
	table *tabular.Table
	group singleflight.Group
}

type LoaderOption func(*TableLoader)

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *TableLoader) {
		l.logger = logger
	}
}

func NewTableLoader(name string, source Source, required []string, joinColumn string, opts ...LoaderOption) *TableLoader {
	l := &TableLoader{
		name:     name,
		source:   source,
		required: required,
		joinCol:  joinColumn,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TableLoader) Name() string { return l.name }

// JoinColumn is the key this table joins on by default.
func (l *TableLoader) JoinColumn() string { return l.joinCol }

func (l *TableLoader) Source() string { return l.source.String() }

// Loaded reports whether the table is cached in memory.
func (l *TableLoader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table != nil
}

// Load returns the cached table, fetching and validating it on first use.
func (l *TableLoader) Load(ctx context.Context) (*tabular.Table, error) {
	l.mu.RLock()
	t := l.table
	l.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	v, err, _ := l.group.Do("load", func() (any, error) {
		// Double-check: another caller may have finished while we queued.
		l.mu.RLock()
		cached := l.table
		l.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		return l.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	table, ok := v.(*tabular.Table)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "unexpected load result type %T", v)
	}
	return table, nil
}

// Reload forces a fresh fetch, replacing the cached table on success. The
// previous table stays in place when the fetch fails.
func (l *TableLoader) Reload(ctx context.Context) (*tabular.Table, error) {
	v, err, _ := l.group.Do("reload", func() (any, error) {
		return l.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	table, ok := v.(*tabular.Table)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "unexpected reload result type %T", v)
	}
	return table, nil
}

// Merge loads the reference table if needed and joins the caller's input
// against it on joinColumn.
func (l *TableLoader) Merge(ctx context.Context, input *tabular.Table, joinColumn string, kind tabular.JoinKind) (*tabular.Table, error) {
	ref, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return tabular.Join(input, ref, joinColumn, kind)
}

// NumRows reports the cached table's row count, 0 when not loaded.
func (l *TableLoader) NumRows() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.table == nil {
		return 0
	}
	return l.table.NumRows()
}

func (l *TableLoader) fetch(ctx context.Context) (*tabular.Table, error) {
	t, err := l.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeTableNotFound, "reference table "+l.name+" backing resource missing")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "reference table "+l.name+" fetch failed")
	}

	if missing := t.MissingColumns(l.required); len(missing) > 0 {
		return nil, dErrors.Newf(dErrors.CodeSchemaValidation,
			"reference table %s missing required columns: %s", l.name, strings.Join(missing, ", "))
	}

	stats := t.Compact()
	l.mu.Lock()
	l.table = t
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Info("reference table loaded",
			"table", l.name,
			"source", l.source.String(),
			"rows", t.NumRows(),
			"columns", t.NumColumns(),
			"distinct_cells", stats.Distinct,
		)
	}
	return t, nil
}
