package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"biorempp/internal/audit"
	"biorempp/internal/dataset"
	"biorempp/internal/events"
	"biorempp/internal/export"
	"biorempp/internal/parser"
	"biorempp/internal/pipeline/models"
	"biorempp/internal/progress"
	"biorempp/internal/tabular"
	"biorempp/internal/textenc"
	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/sentinel"
	"biorempp/pkg/requestcontext"
)

// DefaultMaxConcurrentRuns bounds how many pipelines run at once. Queued
// sessions wait on the semaphore and report status "queued" until a slot
// frees up.
const DefaultMaxConcurrentRuns = 4

// Orchestrator runs the enrichment pipeline for a parsed dataset.
type Orchestrator interface {
	Process(ctx context.Context, ds *dataset.Dataset, sessionID string) (*models.MergeResult, error)
}

// TokenIssuer mints the bearer token that authorizes reads for a session.
type TokenIssuer interface {
	Generate(sessionID string) (string, error)
}

// AuditPublisher records submission and completion events for the audit
// trail.
type AuditPublisher interface {
	Emit(ctx context.Context, rec audit.Record) error
}

// EventPublisher announces finished analyses to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Config carries the tunables for the analysis service.
type Config struct {
	Limits            parser.Limits
	MaxContentBytes   int
	MaxConcurrentRuns int
}

// Service accepts uploads, runs them through the pipeline in the background
// and serves progress, results and exports.
type Service struct {
	orchestrator Orchestrator
	tokens       TokenIssuer
	sessions     SessionStore
	trackers     *progress.Registry

	parser          *parser.Parser
	limits          parser.Limits
	maxContentBytes int

	logger *slog.Logger
	audit  AuditPublisher
	events EventPublisher
	clock  func() time.Time

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	runCtx  context.Context
	runStop context.CancelFunc
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets the logger used for request and pipeline lifecycle logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditPublisher enables audit trail emission.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithEventPublisher enables completion and failure events.
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New wires an analysis service. Orchestrator, token issuer, session store
// and tracker registry are required; audit and events default to off.
func New(orch Orchestrator, tokens TokenIssuer, sessions SessionStore, trackers *progress.Registry, cfg Config, opts ...Option) (*Service, error) {
	if orch == nil {
		return nil, errors.New("analysis: orchestrator is required")
	}
	if tokens == nil {
		return nil, errors.New("analysis: token issuer is required")
	}
	if sessions == nil {
		return nil, errors.New("analysis: session store is required")
	}
	if trackers == nil {
		return nil, errors.New("analysis: tracker registry is required")
	}

	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}
	if cfg.MaxContentBytes <= 0 {
		cfg.MaxContentBytes = parser.DefaultMaxContentBytes
	}

	runCtx, runStop := context.WithCancel(context.Background())
	s := &Service{
		orchestrator:    orch,
		tokens:          tokens,
		sessions:        sessions,
		trackers:        trackers,
		limits:          cfg.Limits,
		maxContentBytes: cfg.MaxContentBytes,
		logger:          slog.Default(),
		clock:           time.Now,
		sem:             semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		runCtx:          runCtx,
		runStop:         runStop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = parser.New(cfg.Limits, parser.WithLogger(s.logger))
	return s, nil
}

// Submit decodes and parses an upload, registers a session and schedules the
// enrichment pipeline. The returned submission carries the session ID and
// the bearer token for subsequent reads.
func (s *Service) Submit(ctx context.Context, raw []byte) (*Submission, error) {
	requestID := requestcontext.RequestID(ctx)
	client := audit.ClientInfoFromContext(ctx)

	text, encoding, err := textenc.Decode(raw)
	if err != nil {
		s.rejectSubmission(ctx, client, requestID, err)
		return nil, err
	}
	if _, err := parser.Precheck(text, s.limits, s.maxContentBytes); err != nil {
		s.rejectSubmission(ctx, client, requestID, err)
		return nil, err
	}
	ds, metrics, err := s.parser.Parse(text)
	if err != nil {
		s.rejectSubmission(ctx, client, requestID, err)
		return nil, err
	}

	sessionID := uuid.NewString()
	token, err := s.tokens.Generate(sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	now := s.clock()
	session := &Session{
		ID:        sessionID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Encoding:  encoding,
		Samples:   ds.Len(),
		KOs:       ds.TotalKOs(),
		Warnings:  metrics.Warnings,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}
	s.trackers.Add(sessionID, progress.NewTracker())

	s.emitAudit(ctx, audit.Record{
		SessionID: sessionID,
		Action:    audit.ActionSubmissionAccepted,
		Outcome:   audit.OutcomeAccepted,
		Samples:   session.Samples,
		KOs:       session.KOs,
		RequestID: requestID,
		ClientIP:  client.IP,
		Device:    client.Device,
	})
	s.logger.InfoContext(ctx, "analysis submitted",
		"request_id", requestID,
		"session_id", sessionID,
		"samples", session.Samples,
		"kos", session.KOs,
		"encoding", encoding,
		"warnings", len(session.Warnings),
	)

	s.wg.Add(1)
	go s.run(sessionID, ds, client, requestID)

	return &Submission{
		SessionID: sessionID,
		Token:     token,
		Samples:   session.Samples,
		KOs:       session.KOs,
		Encoding:  encoding,
		Warnings:  session.Warnings,
	}, nil
}

// Progress reports the live pipeline position for a session. Once the
// tracker has been evicted from the registry a terminal snapshot is
// synthesized from the stored session.
func (s *Service) Progress(ctx context.Context, sessionID string) (*ProgressView, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &ProgressView{SessionID: session.ID, Status: session.Status}
	if tracker, ok := s.trackers.Get(sessionID); ok {
		view.Snapshot = tracker.Snapshot()
		return view, nil
	}

	switch session.Status {
	case StatusCompleted:
		view.Snapshot = progress.Snapshot{
			Stage:          progress.NumStages - 1,
			StagePercent:   100,
			OverallPercent: 100,
			Message:        "completed",
			Done:           true,
		}
	case StatusFailed:
		view.Snapshot = progress.Snapshot{
			Message: "failed",
			Error:   session.ErrorMessage,
			Done:    true,
		}
	default:
		view.Snapshot = progress.Snapshot{Message: "queued"}
	}
	return view, nil
}

// Result returns the finished session with its merge result. Sessions still
// in flight are a conflict; failed sessions replay their original error.
func (s *Service) Result(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case StatusCompleted:
		if session.Result == nil {
			return nil, dErrors.New(dErrors.CodeInternal, "completed session has no result")
		}
		return session, nil
	case StatusFailed:
		return nil, dErrors.New(dErrors.Code(session.ErrorCode), session.ErrorMessage)
	default:
		return nil, dErrors.New(dErrors.CodeConflict, "analysis is still running")
	}
}

// Export resolves one of the result tables for download and returns it with
// the content type for the requested format. Table names are primary,
// pathways and hadeg.
func (s *Service) Export(ctx context.Context, sessionID, tableName, format string) (*tabular.Table, string, error) {
	contentType := export.ContentType(format)
	if contentType == "" {
		return nil, "", dErrors.Newf(dErrors.CodeInvalidInput,
			"unknown export format %q, supported: %s", format, strings.Join(export.Formats(), ", "))
	}

	session, err := s.Result(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	var table *tabular.Table
	switch strings.ToLower(strings.TrimSpace(tableName)) {
	case "primary", "biorempp":
		table = session.Result.Primary
	case "pathways", "kegg":
		table = session.Result.Pathways
	case "hadeg":
		table = session.Result.Hadeg
	default:
		return nil, "", dErrors.Newf(dErrors.CodeInvalidInput,
			"unknown result table %q, available: primary, pathways, hadeg", tableName)
	}
	if table == nil {
		return nil, "", dErrors.Newf(dErrors.CodeNotFound, "table %q was not produced for this analysis", tableName)
	}

	client := audit.ClientInfoFromContext(ctx)
	s.emitAudit(ctx, audit.Record{
		SessionID: session.ID,
		Action:    audit.ActionResultExported,
		Outcome:   audit.OutcomeOK,
		Reason:    strings.ToLower(strings.TrimSpace(tableName)) + " as " + strings.ToLower(strings.TrimSpace(format)),
		Matches:   session.Result.Matches,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  client.IP,
		Device:    client.Device,
	})
	return table, contentType, nil
}

// Close waits for in-flight pipelines to finish. If the context expires
// first the remaining runs are cancelled and marked failed.
func (s *Service) Close(ctx context.Context) error {
	defer s.runStop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.runStop()
		<-done
		return ctx.Err()
	}
}

func (s *Service) run(sessionID string, ds *dataset.Dataset, client audit.ClientInfo, requestID string) {
	defer s.wg.Done()
	ctx := s.runCtx

	start := s.clock()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.finishFailed(sessionID, dErrors.Wrap(err, dErrors.CodeUnavailable, "analysis aborted before start"),
			client, requestID, s.clock().Sub(start))
		return
	}
	defer s.sem.Release(1)

	s.transition(ctx, sessionID, StatusProcessing)

	result, err := s.orchestrator.Process(ctx, ds, sessionID)
	duration := s.clock().Sub(start)
	if err != nil {
		s.finishFailed(sessionID, err, client, requestID, duration)
		return
	}
	s.finishCompleted(sessionID, result, client, requestID)
}

func (s *Service) finishCompleted(sessionID string, result *models.MergeResult, client audit.ClientInfo, requestID string) {
	ctx := context.Background()

	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("completed session vanished from store", "session_id", sessionID, "error", err)
		return
	}
	session.Status = StatusCompleted
	session.Result = result
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to store completed session", "session_id", sessionID, "error", err)
	}

	s.emitAudit(ctx, audit.Record{
		SessionID:  sessionID,
		Action:     audit.ActionAnalysisCompleted,
		Outcome:    audit.OutcomeOK,
		Samples:    session.Samples,
		KOs:        session.KOs,
		Matches:    result.Matches,
		DurationMS: result.Duration.Milliseconds(),
		RequestID:  requestID,
		ClientIP:   client.IP,
		Device:     client.Device,
	})
	s.publishEvent(ctx, events.Completed(sessionID, session.Samples, session.KOs, result.Matches, result.FromCache, result.Duration))
	s.logger.Info("analysis completed",
		"session_id", sessionID,
		"matches", result.Matches,
		"total_records", result.TotalRecords,
		"from_cache", result.FromCache,
		"duration_ms", result.Duration.Milliseconds(),
	)
}

func (s *Service) finishFailed(sessionID string, cause error, client audit.ClientInfo, requestID string, duration time.Duration) {
	ctx := context.Background()

	if tracker, ok := s.trackers.Get(sessionID); ok {
		if !tracker.Snapshot().Done {
			tracker.Fail(cause.Error())
		}
	}

	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed session vanished from store", "session_id", sessionID, "error", err)
		return
	}
	session.Status = StatusFailed
	session.ErrorCode = string(dErrors.CodeOf(cause))
	session.ErrorMessage = cause.Error()
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to store failed session", "session_id", sessionID, "error", err)
	}

	s.emitAudit(ctx, audit.Record{
		SessionID:  sessionID,
		Action:     audit.ActionAnalysisFailed,
		Outcome:    audit.OutcomeFailed,
		Reason:     cause.Error(),
		Samples:    session.Samples,
		KOs:        session.KOs,
		DurationMS: duration.Milliseconds(),
		RequestID:  requestID,
		ClientIP:   client.IP,
		Device:     client.Device,
	})
	s.publishEvent(ctx, events.Failed(sessionID, cause, duration))
	s.logger.Error("analysis failed",
		"session_id", sessionID,
		"code", session.ErrorCode,
		"error", cause,
		"duration_ms", duration.Milliseconds(),
	)
}

func (s *Service) transition(ctx context.Context, sessionID string, status Status) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return
	}
	session.Status = status
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to update session status", "session_id", sessionID, "status", string(status), "error", err)
	}
}

func (s *Service) findSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "analysis session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return session, nil
}

func (s *Service) rejectSubmission(ctx context.Context, client audit.ClientInfo, requestID string, cause error) {
	s.emitAudit(ctx, audit.Record{
		Action:    audit.ActionSubmissionRejected,
		Outcome:   audit.OutcomeRejected,
		Reason:    cause.Error(),
		RequestID: requestID,
		ClientIP:  client.IP,
		Device:    client.Device,
	})
	s.logger.WarnContext(ctx, "submission rejected",
		"request_id", requestID,
		"code", string(dErrors.CodeOf(cause)),
		"error", cause,
	)
}

func (s *Service) emitAudit(ctx context.Context, rec audit.Record) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit record", "action", string(rec.Action), "error", err)
	}
}

func (s *Service) publishEvent(ctx context.Context, evt events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", evt.Type, "error", err)
	}
}
