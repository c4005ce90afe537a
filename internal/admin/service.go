// Package admin exposes the operational surface: cache flush, reference
// table reloads, breaker state and the recent audit trail.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"biorempp/internal/audit"
	"biorempp/internal/reftable"
	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/circuit"
	"biorempp/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ResultCache is the slice of the pipeline cache the admin surface needs.
type ResultCache interface {
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// BreakerInspector reports circuit breaker state.
type BreakerInspector interface {
	BreakerSnapshots() []circuit.Snapshot
}

// AuditPublisher records admin actions in the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, rec audit.Record) error
}

// AuditReader lists recorded audit entries.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Record, error)
}

// Service implements the admin operations.
type Service struct {
	cache    ResultCache
	catalog  *reftable.Catalog
	breakers BreakerInspector

	logger         *slog.Logger
	auditPublisher AuditPublisher
	auditReader    AuditReader
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets the logger for admin operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditPublisher enables audit records for admin actions.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithAuditReader enables the audit listing endpoint.
func WithAuditReader(reader AuditReader) Option {
	return func(s *Service) {
		s.auditReader = reader
	}
}

// New constructs the admin service. Cache, catalog and breaker inspector are
// required.
func New(cache ResultCache, catalog *reftable.Catalog, breakers BreakerInspector, opts ...Option) (*Service, error) {
	if cache == nil {
		return nil, errors.New("admin: result cache is required")
	}
	if catalog == nil {
		return nil, errors.New("admin: table catalog is required")
	}
	if breakers == nil {
		return nil, errors.New("admin: breaker inspector is required")
	}

	s := &Service{
		cache:    cache,
		catalog:  catalog,
		breakers: breakers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ClearCache empties the result cache and returns how many entries were
// dropped.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	size, err := s.cache.Size(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to size result cache")
	}
	if err := s.cache.Clear(ctx); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear result cache")
	}

	s.logAudit(ctx, audit.Record{
		Action:  audit.ActionCacheCleared,
		Outcome: audit.OutcomeOK,
		Reason:  fmt.Sprintf("%d entries dropped", size),
	}, "result cache cleared", "entries", size)
	return size, nil
}

// ReloadTable re-fetches one reference table from its source and returns the
// refreshed stats.
func (s *Service) ReloadTable(ctx context.Context, name string) (reftable.TableStats, error) {
	loader, err := s.catalog.Loader(name)
	if err != nil {
		return reftable.TableStats{}, err
	}
	table, err := loader.Reload(ctx)
	if err != nil {
		s.logAudit(ctx, audit.Record{
			Action:  audit.ActionTableReloaded,
			Outcome: audit.OutcomeFailed,
			Reason:  name + ": " + err.Error(),
		}, "reference table reload failed", "table", name, "error", err)
		return reftable.TableStats{}, err
	}

	stats := reftable.TableStats{
		Name:       loader.Name(),
		Source:     loader.Source(),
		JoinColumn: loader.JoinColumn(),
		Loaded:     loader.Loaded(),
		Rows:       table.NumRows(),
	}
	s.logAudit(ctx, audit.Record{
		Action:  audit.ActionTableReloaded,
		Outcome: audit.OutcomeOK,
		Reason:  name,
	}, "reference table reloaded", "table", name, "rows", stats.Rows)
	return stats, nil
}

// Tables snapshots every registered reference table.
func (s *Service) Tables() []reftable.TableStats {
	return s.catalog.Stats()
}

// Breakers snapshots the pipeline circuit breakers.
func (s *Service) Breakers() []circuit.Snapshot {
	return s.breakers.BreakerSnapshots()
}

// RecentAudit lists the newest audit records, newest first. limit <= 0 uses
// the default.
func (s *Service) RecentAudit(ctx context.Context, limit int) ([]audit.Record, error) {
	if s.auditReader == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "audit trail is not configured")
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	records, err := s.auditReader.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit records")
	}
	return records, nil
}

// logAudit logs the operation and emits it to the audit trail when a
// publisher is configured.
func (s *Service) logAudit(ctx context.Context, rec audit.Record, msg string, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)

	if s.auditPublisher == nil {
		return
	}
	rec.RequestID = requestcontext.RequestID(ctx)
	rec.ClientIP = requestcontext.ClientIP(ctx)
	if err := s.auditPublisher.Emit(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit record", "action", string(rec.Action), "error", err)
	}
}
