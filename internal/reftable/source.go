// Package reftable loads the reference tables the merge pipeline joins
// against. A table is fetched once from its configured backing source,
// schema-validated, compacted and then served from memory; reloads are
// explicit. Sources are pluggable so deployments can ship tables as files,
// objects in a bucket, or rows in a database.
package reftable

import (
	"context"
	"fmt"
	"time"

	"biorempp/internal/tabular"
)

// Driver names accepted by OpenSource.
const (
	DriverFile     = "file"
	DriverS3       = "s3"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Source fetches the raw table behind one catalog entry.
type Source interface {
	Fetch(ctx context.Context) (*tabular.Table, error)
	// String describes the backing resource for logs and admin output.
	String() string
}

// SourceConfig selects and parameterizes a backing source. Only the fields
// for the chosen driver are consulted.
type SourceConfig struct {
	Driver    string
	Path      string
	Delimiter rune

	// s3
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Key       string

	// postgres / sqlite
	DSN   string
	Query string
}

// OpenSource builds the Source for a config. An empty driver defaults to
// the file driver.
func OpenSource(ctx context.Context, cfg SourceConfig) (Source, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileSource(cfg.Path, cfg.Delimiter), nil
	case DriverS3:
		return NewS3Source(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			Key:       cfg.Key,
			Delimiter: cfg.Delimiter,
		})
	case DriverPostgres:
		return NewPostgresSource(cfg.DSN, cfg.Query)
	case DriverSQLite:
		return NewSQLiteSource(cfg.Path, cfg.Query)
	default:
		return nil, fmt.Errorf("unknown reference table driver %q", cfg.Driver)
	}
}

// cellString renders a database value as a table cell.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
