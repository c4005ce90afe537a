// Package handler exposes the analysis service over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"biorempp/internal/analysis"
	"biorempp/internal/export"
	"biorempp/internal/tabular"
	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/httputil"
	"biorempp/pkg/requestcontext"
)

// Service defines the interface for analysis operations.
type Service interface {
	Submit(ctx context.Context, raw []byte) (*analysis.Submission, error)
	Progress(ctx context.Context, sessionID string) (*analysis.ProgressView, error)
	Result(ctx context.Context, sessionID string) (*analysis.Session, error)
	Export(ctx context.Context, sessionID, tableName, format string) (*tabular.Table, string, error)
}

// Handler wires analysis endpoints to the analysis service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	sessionAuth  func(http.Handler) http.Handler
	maxBodyBytes int64
}

// New constructs an analysis handler. sessionAuth guards the read endpoints
// and must place the token's session ID in the request context;
// maxBodyBytes caps how much of an upload is read before rejecting it.
func New(service Service, logger *slog.Logger, sessionAuth func(http.Handler) http.Handler, maxBodyBytes int64) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		sessionAuth:  sessionAuth,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register mounts analysis endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/analyses", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Group(func(r chi.Router) {
			r.Use(h.sessionAuth)
			r.Get("/{sessionID}/progress", h.HandleProgress)
			r.Get("/{sessionID}/result", h.HandleResult)
			r.Get("/{sessionID}/export", h.HandleExport)
		})
	})
}

// HandleSubmit handles POST /api/v1/analyses requests. The upload is either
// a JSON body with a content field or the raw file bytes.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	raw, ok := h.readUpload(w, r, requestID)
	if !ok {
		return
	}

	submission, err := h.service.Submit(ctx, raw)
	if err != nil {
		h.logger.WarnContext(ctx, "analysis submission rejected",
			"request_id", requestID,
			"size_bytes", len(raw),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis accepted",
		"request_id", requestID,
		"session_id", submission.SessionID,
		"samples", submission.Samples,
		"kos", submission.KOs,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, FromSubmission(submission))
}

// HandleProgress handles GET /api/v1/analyses/{sessionID}/progress requests.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.authorizeSession(w, r)
	if !ok {
		return
	}

	view, err := h.service.Progress(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProgress(view))
}

// HandleResult handles GET /api/v1/analyses/{sessionID}/result requests.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.authorizeSession(w, r)
	if !ok {
		return
	}

	session, err := h.service.Result(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis result served",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"matches", session.Result.Matches,
		"from_cache", session.Result.FromCache,
	)
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

// HandleExport handles GET /api/v1/analyses/{sessionID}/export requests.
// Query parameters: table (primary, pathways, hadeg) and format (csv, tsv,
// json), defaulting to the primary table as CSV.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.authorizeSession(w, r)
	if !ok {
		return
	}

	tableName := r.URL.Query().Get("table")
	if tableName == "" {
		tableName = "primary"
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}

	table, contentType, err := h.service.Export(ctx, sessionID, tableName, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(sessionID, tableName, format)))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, table); err != nil {
		// Headers are already sent; all we can do is log the truncation.
		h.logger.ErrorContext(ctx, "export write failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"table", tableName,
			"format", format,
			"error", err,
		)
	}
}

// readUpload extracts the submitted content bytes, writing the error
// response itself on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, requestID string) ([]byte, bool) {
	ctx := r.Context()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, false
		}
		return req.ContentBytes(), true
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput,
				"upload exceeds the %d byte limit", maxErr.Limit))
			return nil, false
		}
		h.logger.WarnContext(ctx, "upload read failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return nil, false
	}
	return raw, true
}

// authorizeSession checks that the token in the context grants access to the
// session named in the URL.
func (h *Handler) authorizeSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing session ID"))
		return "", false
	}
	if tokenSession := requestcontext.SessionID(ctx); tokenSession != sessionID {
		h.logger.WarnContext(ctx, "session access denied",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token does not grant access to this session"))
		return "", false
	}
	return sessionID, true
}

func exportFilename(sessionID, tableName, format string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("biorempp_%s_%s.%s", strings.ToLower(strings.TrimSpace(tableName)), short, format)
}
