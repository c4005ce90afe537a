// Package middleware holds the HTTP middleware chain: request identity,
// client metadata, logging, recovery, metrics and the two auth guards.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"biorempp/pkg/requestcontext"
)

// RequestID ensures every request carries an ID, honoring one supplied by an
// upstream proxy and minting one otherwise. The ID is echoed in the response
// so clients can quote it in support requests.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins a single "now" for the whole request so audit records and
// domain timestamps agree.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
