package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paycore/internal/domain/auth"
)

// serveWithAuth pushes one request through the Auth middleware and
// reports the user the inner handler observed, if any.
func serveWithAuth(t *testing.T, secret, bearer string) (auth.UserContext, bool) {
	t.Helper()
	var (
		got   auth.UserContext
		found bool
	)
	handler := Auth(secret, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, found = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got, found
}

func TestAuthMiddlewarePropagatesClaims(t *testing.T) {
	token, err := auth.GenerateToken("test-secret", auth.Claims{UserID: "u1", RoleID: "r1", RoleName: auth.RoleHR}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	user, ok := serveWithAuth(t, "test-secret", token)
	if !ok {
		t.Fatal("expected user in context")
	}
	if user.UserID != "u1" || user.RoleID != "r1" || user.RoleName != auth.RoleHR {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthMiddlewareWithoutToken(t *testing.T) {
	if _, ok := serveWithAuth(t, "secret", ""); ok {
		t.Fatal("did not expect user in context")
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("other-secret", auth.Claims{UserID: "u1", RoleID: "r1", RoleName: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, ok := serveWithAuth(t, "secret", token); ok {
		t.Fatal("did not expect user from token signed with another secret")
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", auth.Claims{UserID: "u1", RoleID: "r1", RoleName: auth.RoleEmployee}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, ok := serveWithAuth(t, "secret", token); ok {
		t.Fatal("did not expect user from expired token")
	}
}
