package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/httputil"
	"biorempp/pkg/requestcontext"
)

// Handler wires the admin endpoints to the admin service.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	adminAuth func(http.Handler) http.Handler
}

// NewHandler constructs the admin handler. adminAuth guards every admin
// route.
func NewHandler(service *Service, logger *slog.Logger, adminAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		adminAuth: adminAuth,
	}
}

// Register mounts the admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.adminAuth)
		r.Post("/cache/clear", h.HandleClearCache)
		r.Get("/tables", h.HandleListTables)
		r.Post("/tables/{name}/reload", h.HandleReloadTable)
		r.Get("/breakers", h.HandleBreakers)
		r.Get("/audit", h.HandleRecentAudit)
	})
}

// HandleClearCache handles POST /admin/cache/clear requests.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cleared, err := h.service.ClearCache(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "cache clear failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CacheClearResponse{
		ClearedEntries: cleared,
		ClearedAt:      time.Now().UTC(),
	})
}

// HandleListTables handles GET /admin/tables requests.
func (h *Handler) HandleListTables(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, TablesResponse{Tables: h.service.Tables()})
}

// HandleReloadTable handles POST /admin/tables/{name}/reload requests.
func (h *Handler) HandleReloadTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	stats, err := h.service.ReloadTable(ctx, name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TableReloadResponse{
		Table:      stats,
		ReloadedAt: time.Now().UTC(),
	})
}

// HandleBreakers handles GET /admin/breakers requests.
func (h *Handler) HandleBreakers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, BreakersResponse{Breakers: h.service.Breakers()})
}

// HandleRecentAudit handles GET /admin/audit requests. The limit query
// parameter bounds the listing.
func (h *Handler) HandleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentAudit(ctx, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditRecords(records))
}
