// Package pipeline runs the enrichment pipeline: a fixed sequence of merge
// stages joining a parsed dataset against the reference tables, guarded by
// per-table circuit breakers, bounded retries and an overall deadline, with
// a content-addressed result cache in front.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"biorempp/internal/dataset"
	"biorempp/internal/pipeline/metrics"
	"biorempp/internal/pipeline/models"
	"biorempp/internal/pipeline/store/resultcache"
	"biorempp/internal/progress"
	"biorempp/internal/reftable"
	"biorempp/internal/tabular"
	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/circuit"
)

// ColumnSample is the sample identifier column of the flattened input table.
const ColumnSample = "sample"

// Defaults applied by Config.withDefaults for unset values.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultTimeout    = 5 * time.Minute
	DefaultCacheTTL   = time.Hour
)

// Config holds the pipeline's tuning knobs. The zero value enables every
// stage and picks the defaults.
type Config struct {
	// MaxRetries is the number of extra merge attempts after the first.
	MaxRetries int
	// RetryDelay is the fixed pause between attempts. No backoff.
	RetryDelay time.Duration
	// Timeout bounds one whole Process call.
	Timeout time.Duration
	// CacheTTL is how long finished results stay cached.
	CacheTTL time.Duration

	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Skip flags disable the optional enrichment stages entirely: no merge,
	// no breaker interaction, nil table in the result.
	SkipPathway bool
	SkipHadeg   bool
	SkipToxcsm  bool
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       DefaultMaxRetries,
		RetryDelay:       DefaultRetryDelay,
		Timeout:          DefaultTimeout,
		CacheTTL:         DefaultCacheTTL,
		BreakerThreshold: circuit.DefaultFailureThreshold,
		BreakerCooldown:  circuit.DefaultCooldown,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

// Clock returns the current time. Injected in tests.
type Clock func() time.Time

// Orchestrator drives the merge pipeline. Safe for concurrent use: the
// catalog, cache, breakers and registry are all concurrency-safe, and each
// Process call keeps its own state on the stack.
type Orchestrator struct {
	catalog  *reftable.Catalog
	cache    resultcache.ResultCache
	cfg      Config
	breakers map[string]*circuit.Breaker
	registry *progress.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
	clock    Clock
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRegistry attaches the progress tracker registry. Without one, progress
// reporting is a no-op.
func WithRegistry(registry *progress.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New creates an orchestrator over the catalog's reference tables, one
// circuit breaker per table.
func New(catalog *reftable.Catalog, cache resultcache.ResultCache, cfg Config, opts ...Option) (*Orchestrator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("reference table catalog is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("result cache is required")
	}

	o := &Orchestrator{
		catalog:  catalog,
		cache:    cache,
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*circuit.Breaker),
		tracer:   otel.Tracer("biorempp/pipeline"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	for _, name := range catalog.Names() {
		o.breakers[name] = circuit.New(name,
			circuit.WithFailureThreshold(o.cfg.BreakerThreshold),
			circuit.WithCooldown(o.cfg.BreakerCooldown),
		)
	}
	return o, nil
}

// BreakerSnapshots reports the state of every table's circuit breaker,
// keyed in catalog order.
func (o *Orchestrator) BreakerSnapshots() []circuit.Snapshot {
	names := o.catalog.Names()
	snaps := make([]circuit.Snapshot, 0, len(names))
	for _, name := range names {
		if b := o.breakers[name]; b != nil {
			snaps = append(snaps, b.Snapshot())
		}
	}
	return snaps
}

// Process runs the full pipeline for one dataset. The session ID ties the
// run to its progress tracker; an unknown or empty ID disables progress
// reporting. On a cache hit the stored result is returned immediately with
// FromCache set. Any stage failure aborts the run; there is no partial
// result.
func (o *Orchestrator) Process(ctx context.Context, ds *dataset.Dataset, sessionID string) (*models.MergeResult, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "dataset has no samples")
	}

	start := o.clock()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("samples", ds.Len()),
			attribute.Int("kos", ds.TotalKOs()),
		))
	defer span.End()

	tr := o.trackerFor(sessionID)

	o.startStage(tr, StageCacheCheck)
	key := resultcache.GenerateKey(ds.CanonicalContent())
	if cached, err := o.cache.Get(ctx, key); err == nil {
		metrics.CacheHitsTotal.Inc()
		metrics.RunsTotal.WithLabelValues("cache_hit").Inc()
		if tr != nil {
			tr.Complete()
		}
		if o.logger != nil {
			o.logger.InfoContext(ctx, "pipeline served from cache",
				"session_id", sessionID, "cache_key", key)
		}
		// Copy so the shared cached entry is never mutated.
		result := *cached
		result.FromCache = true
		return &result, nil
	}
	// The cache is an optimization: any lookup error counts as a miss.
	metrics.CacheMissesTotal.Inc()

	input, err := inputTable(ds)
	if err != nil {
		return nil, o.fail(ctx, tr, sessionID, err)
	}

	primary, err := o.runStage(ctx, tr, StageBioremppMerge, reftable.TableBioRemPP,
		func(ctx context.Context) (*tabular.Table, error) {
			return o.mergeBiorempp(ctx, input)
		})
	if err != nil {
		return nil, o.fail(ctx, tr, sessionID, err)
	}

	var pathways *tabular.Table
	if !o.cfg.SkipPathway {
		pathways, err = o.runStage(ctx, tr, StagePathwayMerge, reftable.TableKEGG,
			func(ctx context.Context) (*tabular.Table, error) {
				return o.mergePathways(ctx, input)
			})
		if err != nil {
			return nil, o.fail(ctx, tr, sessionID, err)
		}
	}

	var hadeg *tabular.Table
	if !o.cfg.SkipHadeg {
		hadeg, err = o.runStage(ctx, tr, StageHadegMerge, reftable.TableHadeg,
			func(ctx context.Context) (*tabular.Table, error) {
				return o.mergeHadeg(ctx, primary)
			})
		if err != nil {
			return nil, o.fail(ctx, tr, sessionID, err)
		}
	}

	if !o.cfg.SkipToxcsm {
		primary, err = o.runStage(ctx, tr, StageToxcsmMerge, reftable.TableToxCSM,
			func(ctx context.Context) (*tabular.Table, error) {
				return o.mergeToxcsm(ctx, primary)
			})
		if err != nil {
			return nil, o.fail(ctx, tr, sessionID, err)
		}
	}

	o.startStage(tr, StageResultPreparation)
	result := &models.MergeResult{
		Primary:      primary,
		Pathways:     pathways,
		Hadeg:        hadeg,
		Matches:      primary.NumRows(),
		TotalRecords: primary.NumRows(),
		CacheKey:     key,
		Duration:     o.clock().Sub(start),
		CreatedAt:    o.clock(),
	}

	// A failed store does not fail the run; the result is already complete.
	o.startStage(tr, StageCacheStore)
	if err := o.cache.Set(ctx, key, result, o.cfg.CacheTTL); err != nil {
		metrics.CacheStoreFailuresTotal.Inc()
		if o.logger != nil {
			o.logger.WarnContext(ctx, "result cache store failed",
				"cache_key", key, "error", err)
		}
	}

	if tr != nil {
		tr.Complete()
	}
	metrics.RunsTotal.WithLabelValues("success").Inc()
	if o.logger != nil {
		o.logger.InfoContext(ctx, "pipeline completed",
			"session_id", sessionID,
			"samples", ds.Len(),
			"matches", result.Matches,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}
	return result, nil
}

// mergeFn produces one stage's output table.
type mergeFn func(ctx context.Context) (*tabular.Table, error)

// runStage executes one merge stage: breaker check, bounded attempts, output
// validation, exactly one breaker success/failure record for the series.
func (o *Orchestrator) runStage(ctx context.Context, tr *progress.Tracker, stage Stage, table string, fn mergeFn) (*tabular.Table, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+stage.String(),
		trace.WithAttributes(attribute.String("table", table)))
	defer span.End()

	stageStart := o.clock()
	o.startStage(tr, stage)

	breaker := o.breakers[table]
	if breaker != nil && breaker.IsOpen() {
		metrics.BreakerRejectionsTotal.WithLabelValues(table).Inc()
		err := &StageError{Stage: stage, Err: ErrCircuitOpen}
		span.RecordError(err)
		span.SetStatus(codes.Error, "circuit breaker open")
		return nil, err
	}

	out, err := o.attemptMerge(ctx, tr, stage, fn)
	if err == nil && (out == nil || out.NumRows() == 0) {
		err = ErrEmptyResult
	}

	metrics.StageDurationSeconds.WithLabelValues(stage.String()).
		Observe(o.clock().Sub(stageStart).Seconds())

	if err != nil {
		// A run aborted by the caller's deadline says nothing about the
		// table's health; only real attempt failures count against it.
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			o.recordFailure(breaker, table)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "stage failed")
		return nil, &StageError{Stage: stage, Err: err}
	}

	if breaker != nil {
		breaker.RecordSuccess()
	}
	if tr != nil {
		tr.Update(100, "")
	}
	span.SetAttributes(attribute.Int("rows", out.NumRows()))
	return out, nil
}

// attemptMerge calls fn up to MaxRetries+1 times with a fixed delay between
// attempts. Structural failures are returned immediately; transient ones are
// retried until the attempts run out.
func (o *Orchestrator) attemptMerge(ctx context.Context, tr *progress.Tracker, stage Stage, fn mergeFn) (*tabular.Table, error) {
	attempts := o.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tr != nil {
			if attempt == 1 {
				tr.Update(50, "")
			} else {
				tr.Update(50, fmt.Sprintf("%s (attempt %d of %d)", stage.message(), attempt, attempts))
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		metrics.MergeRetriesTotal.WithLabelValues(stage.String()).Inc()
		if o.logger != nil {
			o.logger.WarnContext(ctx, "merge attempt failed, retrying",
				"stage", stage.String(), "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.RetryDelay):
		}
	}
	return nil, &RetryExhaustedError{Attempts: attempts, Err: lastErr}
}

// isRetryable reports whether another attempt could succeed. Structural
// problems cannot heal between attempts.
func isRetryable(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeTableNotFound, dErrors.CodeSchemaValidation, dErrors.CodeJoinColumnMissing:
		return false
	}
	return true
}

// mergeBiorempp joins the flattened input against the primary reference
// table on the KO column.
func (o *Orchestrator) mergeBiorempp(ctx context.Context, input *tabular.Table) (*tabular.Table, error) {
	loader, err := o.catalog.Loader(reftable.TableBioRemPP)
	if err != nil {
		return nil, err
	}
	return loader.Merge(ctx, input, reftable.JoinColumnKO, tabular.InnerJoin)
}

// mergePathways joins the raw input, not the primary output, against the
// kegg degradation pathway table.
func (o *Orchestrator) mergePathways(ctx context.Context, input *tabular.Table) (*tabular.Table, error) {
	loader, err := o.catalog.Loader(reftable.TableKEGG)
	if err != nil {
		return nil, err
	}
	return loader.Merge(ctx, input, reftable.JoinColumnKO, tabular.InnerJoin)
}

// mergeHadeg joins the distinct (sample, ko) pairs of the primary output
// against the hadeg table.
func (o *Orchestrator) mergeHadeg(ctx context.Context, primary *tabular.Table) (*tabular.Table, error) {
	loader, err := o.catalog.Loader(reftable.TableHadeg)
	if err != nil {
		return nil, err
	}
	pairs, err := primary.DistinctBy(ColumnSample, reftable.JoinColumnKO)
	if err != nil {
		return nil, err
	}
	return loader.Merge(ctx, pairs, reftable.JoinColumnKO, tabular.InnerJoin)
}

// mergeToxcsm extends the primary output with toxicity columns. The
// reference is reduced to one row per compound first, so the left join
// preserves the primary row count.
func (o *Orchestrator) mergeToxcsm(ctx context.Context, primary *tabular.Table) (*tabular.Table, error) {
	loader, err := o.catalog.Loader(reftable.TableToxCSM)
	if err != nil {
		return nil, err
	}
	ref, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	reduced, err := ref.FirstBy(reftable.JoinColumnCPD)
	if err != nil {
		return nil, err
	}
	return tabular.Join(primary, reduced, reftable.JoinColumnCPD, tabular.LeftJoin)
}

// inputTable flattens a dataset into one (sample, ko) row per pair,
// preserving insertion order.
func inputTable(ds *dataset.Dataset) (*tabular.Table, error) {
	t, err := tabular.New([]string{ColumnSample, reftable.JoinColumnKO})
	if err != nil {
		return nil, err
	}
	for _, s := range ds.Samples() {
		for _, ko := range s.KOs() {
			if err := t.AppendRow([]string{s.ID().String(), ko.String()}); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (o *Orchestrator) trackerFor(sessionID string) *progress.Tracker {
	if o.registry == nil || sessionID == "" {
		return nil
	}
	tr, ok := o.registry.Get(sessionID)
	if !ok {
		return nil
	}
	return tr
}

func (o *Orchestrator) startStage(tr *progress.Tracker, stage Stage) {
	if tr != nil {
		tr.StartStage(int(stage), stage.message())
	}
}

// recordFailure records a breaker failure and counts the transition when it
// just opened.
func (o *Orchestrator) recordFailure(breaker *circuit.Breaker, table string) {
	if breaker == nil {
		return
	}
	wasOpen := breaker.State() == circuit.StateOpen
	breaker.RecordFailure()
	if !wasOpen && breaker.State() == circuit.StateOpen {
		metrics.BreakerOpensTotal.WithLabelValues(table).Inc()
	}
}

// fail finalizes a failed run: tracker, metrics, log. Returns err unchanged.
func (o *Orchestrator) fail(ctx context.Context, tr *progress.Tracker, sessionID string, err error) error {
	if tr != nil {
		tr.Fail(err.Error())
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "pipeline failed")
	metrics.RunsTotal.WithLabelValues("failure").Inc()
	if o.logger != nil {
		o.logger.ErrorContext(ctx, "pipeline failed",
			"session_id", sessionID,
			"code", string(ErrorCode(err)),
			"error", err,
		)
	}
	return err
}
