package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"paycore/internal/platform/requestctx"
)

// RequestID gives every request a correlation id. Ids supplied by the
// caller on X-Request-ID are kept so a gateway can trace across services;
// anything else gets a fresh UUID. The id is echoed on the response and
// stamped into the context for the logger and response envelopes.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := incomingRequestID(r)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), reqID)))
	})
}

func incomingRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
