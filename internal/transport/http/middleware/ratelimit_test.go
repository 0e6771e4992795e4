package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paycore/internal/domain/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

type rateReq struct {
	method string
	path   string
	addr   string
	body   string
	user   string
}

func fire(t *testing.T, h http.Handler, rr rateReq) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if rr.body != "" {
		body = strings.NewReader(rr.body)
	}
	req := httptest.NewRequest(rr.method, rr.path, body)
	if rr.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if rr.addr != "" {
		req.RemoteAddr = rr.addr
	}
	if rr.user != "" {
		ctx := context.WithValue(req.Context(), ctxKeyUser, auth.UserContext{UserID: rr.user})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitKeysOnUserAcrossAddresses(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	first := fire(t, limited, rateReq{method: http.MethodPost, path: "/api/v1/payroll/runs", addr: "198.51.100.11:2222", user: "user-1"})
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", first.Code)
	}

	// Same user from a new address still burns the same budget.
	second := fire(t, limited, rateReq{method: http.MethodPost, path: "/api/v1/payroll/runs", addr: "198.51.100.12:3333", user: "user-1"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
}

func TestRateLimitKeysOnAddressForAnonymous(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	first := fire(t, limited, rateReq{method: http.MethodPost, path: "/api/v1/auth/request-reset", addr: "203.0.113.10:4444", body: `{"email":"a@example.com"}`})
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", first.Code)
	}

	// Different source port, same host: one anonymous caller, one budget.
	second := fire(t, limited, rateReq{method: http.MethodPost, path: "/api/v1/auth/request-reset", addr: "203.0.113.10:5555", body: `{"email":"b@example.com"}`})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
}

func TestRateLimitWindowRollsOver(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(okHandler())
	login := rateReq{method: http.MethodPost, path: "/api/v1/auth/login", addr: "192.0.2.20:1111", body: `{"email":"a@example.com"}`}

	if rec := fire(t, limited, login); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", rec.Code)
	}
	if rec := fire(t, limited, login); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}

	time.Sleep(50 * time.Millisecond)

	if rec := fire(t, limited, login); rec.Code != http.StatusNoContent {
		t.Fatalf("request after rollover: got %d", rec.Code)
	}
}

func TestRateLimitAnnouncesRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())
	login := rateReq{method: http.MethodPost, path: "/api/v1/auth/login", addr: "192.0.2.30:1234", body: `{"email":"a@example.com"}`}

	fire(t, limited, login)
	rec := fire(t, limited, login)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled response, got %d", rec.Code)
	}
	for _, header := range []string{"Retry-After", "X-RateLimit-Reset", "X-RateLimit-Limit"} {
		if rec.Header().Get(header) == "" {
			t.Fatalf("expected %s header on throttled response", header)
		}
	}
}

func TestSensitiveMutationRateLimitLeavesReadsAlone(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(okHandler())

	for i := 0; i < 6; i++ {
		rec := fire(t, limited, rateReq{method: http.MethodGet, path: "/api/v1/payroll/2026/3/summary", addr: "198.51.100.40:8888"})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("read request %d: expected to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}
}

func TestSensitiveMutationRateLimitThrottlesDistribute(t *testing.T) {
	// base 4 gives the actor-scoped bucket a budget of 2 per window.
	limited := SensitiveMutationRateLimit(4, time.Minute)(okHandler())
	distribute := rateReq{method: http.MethodPost, path: "/api/v1/payroll/2026/3/distribute", addr: "198.51.100.41:9999", user: "hr-1"}

	for i := 0; i < 2; i++ {
		if rec := fire(t, limited, distribute); rec.Code != http.StatusNoContent {
			t.Fatalf("sensitive request %d: expected pass, got %d", i+1, rec.Code)
		}
	}
	if rec := fire(t, limited, distribute); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third sensitive request: expected 429, got %d", rec.Code)
	}
}

func TestSensitiveRateScopeClassification(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/v1/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/auth/mfa/enable", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/payroll/runs", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/payroll/2026/2/distribute", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/payroll/2026/2/reopen", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/payroll/payslips/abc/regenerate", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/attendance/import", sensitiveScopeActor},
		{http.MethodGet, "/api/v1/payroll/runs", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/attendance", sensitiveScopeNone},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := sensitiveRateScope(req); got != tc.want {
			t.Fatalf("%s %s: expected scope %q, got %q", tc.method, tc.path, tc.want, got)
		}
	}
}
