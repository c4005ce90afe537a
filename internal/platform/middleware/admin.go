package middleware

import (
	"log/slog"
	"net/http"

	"biorempp/internal/platform/secrets"
	"biorempp/pkg/requestcontext"
)

// RequireAdminKey guards the admin endpoints. The X-Admin-Key header is
// verified against the configured bcrypt hash; with no hash configured the
// admin surface is disabled outright.
func RequireAdminKey(keyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if keyHash == "" {
				logger.WarnContext(ctx, "admin endpoint called but no admin key configured",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeForbidden(w, "admin surface is disabled")
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" || secrets.Verify(key, keyHash) != nil {
				logger.WarnContext(ctx, "admin key mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin key required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"` + description + `"}`))
}
