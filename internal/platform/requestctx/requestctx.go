// Package requestctx carries the per-request correlation id through the
// context, so the logger and the response envelope can stamp it without
// threading an extra parameter through every call.
package requestctx

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the id stamped by the HTTP middleware, or "" for
// contexts that never passed through it (background jobs, tests).
func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}
