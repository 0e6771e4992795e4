package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/shared"
)

// RateLimitKeyFunc derives the bucket key for a request. Keys group the
// requests that share a quota: an authenticated user, a login email, or
// the client address.
type RateLimitKeyFunc func(r *http.Request) string

// RateLimit enforces a per-key quota over a fixed window. The key is the
// authenticated user when present, otherwise the client address.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter windows to credential
// endpoints and to payroll mutations that fan out work per employee.
// Credential routes are limited twice: by address and by the submitted
// email, so attempts on one account cannot hide behind many addresses.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	actorLimit := max(baseLimit/2, 1)
	authByIP := newLimiter(authLimit, window, clientIPKey)
	authByEmail := newLimiter(authLimit, window, emailOrIPKey("email"))
	byActor := newLimiter(actorLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var guards []*limiter
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				guards = []*limiter{authByIP, authByEmail}
			case sensitiveScopeActor:
				guards = []*limiter{byActor}
			}
			for _, g := range guards {
				if !g.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limiter is a fixed-window counter per key. Windows are stored by value;
// expired entries are pruned once the map grows past pruneAt so an
// address scan cannot hold memory indefinitely.
type limiter struct {
	limit  int
	window time.Duration
	keyFn  RateLimitKeyFunc

	mu      sync.Mutex
	windows map[string]countWindow
}

type countWindow struct {
	until time.Time
	seen  int
}

const pruneAt = 4096

func newLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *limiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &limiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		windows: make(map[string]countWindow),
	}
}

// verdict is the accounting outcome for a single request.
type verdict struct {
	allowed   bool
	remaining int
	resetIn   int
}

func (l *limiter) take(key string, now time.Time) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if !ok || !now.Before(win.until) {
		if len(l.windows) >= pruneAt {
			l.prune(now)
		}
		win = countWindow{until: now.Add(l.window)}
	}
	win.seen++
	l.windows[key] = win

	return verdict{
		allowed:   win.seen <= l.limit,
		remaining: max(l.limit-win.seen, 0),
		resetIn:   ceilSeconds(win.until.Sub(now)),
	}
}

func (l *limiter) prune(now time.Time) {
	for key, win := range l.windows {
		if !now.Before(win.until) {
			delete(l.windows, key)
		}
	}
}

// enforce accounts for the request and writes quota headers. It answers
// false after writing the 429 response when the caller is over budget.
func (l *limiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	key := l.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}

	v := l.take(key, time.Now())
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(v.resetIn))
	if v.allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(v.resetIn, 1)))
	zap.L().Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Int("limit", l.limit),
		zap.Int("windowSec", int(l.window.Seconds())),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return shared.ClientIP(r)
}

func emailOrIPKey(field string) RateLimitKeyFunc {
	name := strings.TrimSpace(field)
	if name == "" {
		name = "email"
	}
	return func(r *http.Request) string {
		if email := peekJSONString(r, name); email != "" {
			return "email:" + strings.ToLower(email)
		}
		return clientIPKey(r)
	}
}

// peekJSONString reads up to 64 KiB of a JSON body to pull one string
// field, then restores the body for the real handler.
func peekJSONString(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if ct := r.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]json.RawMessage
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(payload[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	switch strings.ToUpper(strings.TrimSpace(r.Method)) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	switch path {
	case "/auth/login",
		"/auth/request-reset",
		"/auth/reset",
		"/auth/mfa/setup",
		"/auth/mfa/enable",
		"/auth/mfa/disable":
		return sensitiveScopeAuth
	case "/payroll/runs",
		"/attendance/import":
		return sensitiveScopeActor
	}

	if strings.HasPrefix(path, "/payroll/") {
		for _, suffix := range []string{"/distribute", "/reopen", "/regenerate"} {
			if strings.HasSuffix(path, suffix) {
				return sensitiveScopeActor
			}
		}
	}
	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
