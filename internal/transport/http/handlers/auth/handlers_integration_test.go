package authhandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"paycore/internal/app/server"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/notifications"
	"paycore/internal/platform/config"
	authhandler "paycore/internal/transport/http/handlers/auth"
)

// captureMailer records deliveries instead of talking SMTP so the reset
// flow can be driven end to end against a real database.
type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

type capturedMail struct {
	to   string
	body string
}

func (m *captureMailer) Send(_ context.Context, _, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{to: to, body: body})
	return nil
}

func (m *captureMailer) deliveries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) lastMail(t *testing.T) capturedMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected at least one delivered email")
	}
	return m.sent[len(m.sent)-1]
}

type responseEnvelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   *responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func wantErrorCode(t *testing.T, env responseEnvelope, code string) {
	t.Helper()
	if env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %q, got %+v", code, env.Error)
	}
}

func TestPasswordResetRequestDeliveryAndResetFlow(t *testing.T) {
	h, app, mailer, _, email, _ := newResetTestHarness(t)
	defer app.Close()

	status, env := postHandlerJSON(t, h.HandleRequestReset, "/api/v1/auth/request-reset", map[string]any{
		"email": email,
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("request-reset: expected success, got status %d envelope %+v", status, env)
	}
	if got := env.Data["status"]; got != "reset_requested" {
		t.Fatalf("request-reset: expected reset_requested status, got %v", got)
	}
	if mailer.deliveries() != 1 {
		t.Fatalf("expected exactly one reset email, got %d", mailer.deliveries())
	}

	mail := mailer.lastMail(t)
	if mail.to != email {
		t.Fatalf("reset email went to %q, expected %q", mail.to, email)
	}
	token := extractResetToken(t, mail.body)

	// The raw token must never hit the table; only its hash may.
	if n := countResetRows(t, app, token, false); n != 0 {
		t.Fatalf("found %d rows storing the raw token", n)
	}
	if n := countResetRows(t, app, auth.HashToken(token), false); n != 1 {
		t.Fatalf("expected one hashed token row, found %d", n)
	}

	newPassword := "BrandNew123Pw"
	status, env = postHandlerJSON(t, h.HandleResetPassword, "/api/v1/auth/reset", map[string]any{
		"token":       token,
		"newPassword": newPassword,
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("reset: expected success, got status %d envelope %+v", status, env)
	}
	if got := env.Data["status"]; got != "password_reset" {
		t.Fatalf("reset: expected password_reset status, got %v", got)
	}

	userRow, err := h.Auth.FindActiveUserByEmail(context.Background(), email, "active")
	if err != nil {
		t.Fatalf("reload user after reset: %v", err)
	}
	if err := auth.CheckPassword(userRow.Password, newPassword); err != nil {
		t.Fatalf("expected stored hash to match the new password: %v", err)
	}
	if n := countResetRows(t, app, auth.HashToken(token), true); n != 1 {
		t.Fatalf("expected the token row to be marked used, found %d", n)
	}

	// A consumed token cannot reset the password a second time.
	status, env = postHandlerJSON(t, h.HandleResetPassword, "/api/v1/auth/reset", map[string]any{
		"token":       token,
		"newPassword": "SecondWind456x",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("reused token: expected 400, got %d", status)
	}
	wantErrorCode(t, env, "invalid_token")
}

func TestPasswordResetInvalidTokenRejected(t *testing.T) {
	h, app, _, _, _, _ := newResetTestHarness(t)
	defer app.Close()

	status, env := postHandlerJSON(t, h.HandleResetPassword, "/api/v1/auth/reset", map[string]any{
		"token":       "not-a-real-token",
		"newPassword": "Plausible123Pw",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bogus token should be rejected with 400, got %d", status)
	}
	wantErrorCode(t, env, "invalid_token")
}

func TestPasswordResetUnknownEmailReturnsGenericSuccess(t *testing.T) {
	h, app, mailer, _, _, _ := newResetTestHarness(t)
	defer app.Close()

	status, env := postHandlerJSON(t, h.HandleRequestReset, "/api/v1/auth/request-reset", map[string]any{
		"email": fmt.Sprintf("ghost-%d@corp.test", time.Now().UnixNano()),
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("unknown email must not be distinguishable, got status %d envelope %+v", status, env)
	}
	if got := env.Data["status"]; got != "reset_requested" {
		t.Fatalf("unknown email should still report reset_requested, got %v", got)
	}
	if mailer.deliveries() != 0 {
		t.Fatalf("expected no delivery for unknown account, got %d message(s)", mailer.deliveries())
	}
}

func TestPasswordResetExpiredTokenRejected(t *testing.T) {
	h, app, _, userID, _, _ := newResetTestHarness(t)
	defer app.Close()

	staleToken := fmt.Sprintf("stale-%d-token", time.Now().UnixNano())
	if err := h.Auth.CreatePasswordReset(context.Background(), userID, auth.HashToken(staleToken), time.Now().Add(-1*time.Hour)); err != nil {
		t.Fatalf("seed stale reset token: %v", err)
	}

	status, env := postHandlerJSON(t, h.HandleResetPassword, "/api/v1/auth/reset", map[string]any{
		"token":       staleToken,
		"newPassword": "StaleToken123Aa",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expired token should be rejected with 400, got %d", status)
	}
	wantErrorCode(t, env, "invalid_token")
}

func TestPasswordResetWeakPasswordRejected(t *testing.T) {
	h, app, _, _, _, _ := newResetTestHarness(t)
	defer app.Close()

	status, env := postHandlerJSON(t, h.HandleResetPassword, "/api/v1/auth/reset", map[string]any{
		"token":       "irrelevant",
		"newPassword": "short",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", status)
	}
	wantErrorCode(t, env, "weak_password")
}

func newResetTestHarness(t *testing.T) (*authhandler.Handler, *server.App, *captureMailer, string, string, string) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if strings.TrimSpace(dbURL) == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "reset-suite-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		AppBaseURL:         "https://pay.example.com",
		Environment:        "test",
		SeedAdminEmail:     "payops@corp.test",
		SeedAdminPassword:  "Bootstrap123!",
		EmailFrom:          "resets@corp.test",
		RunMigrations:      true,
		MigrationsDir:      resetMigrationsDir(t),
		RunSeed:            true,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 600,
		JobQueueSize:       8,
		PayslipDir:         t.TempDir(),
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("boot application: %v", err)
	}

	userID, email, initialPassword := createResetTestUser(t, app)

	mailer := &captureMailer{}
	notifSvc := notifications.New(notifications.NewStore(app.DB), mailer)
	if err := notifSvc.UpdateSettings(context.Background(), true, cfg.EmailFrom); err != nil {
		t.Fatalf("failed to enable email delivery: %v", err)
	}

	service := auth.NewService(auth.NewStore(app.DB))
	handler := authhandler.NewHandler(service, cfg.JWTSecret, cfg.AppBaseURL, nil, notifSvc)
	return handler, app, mailer, userID, email, initialPassword
}

func resetMigrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "..", "migrations")
}

func createResetTestUser(t *testing.T, app *server.App) (string, string, string) {
	t.Helper()
	ctx := context.Background()

	var roleID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM roles WHERE name = $1", auth.RoleEmployee).Scan(&roleID); err != nil {
		t.Fatalf("look up employee role: %v", err)
	}

	initialPassword := "FirstLogin123"
	passwordHash, err := auth.HashPassword(initialPassword)
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}

	email := fmt.Sprintf("pw-reset-%d@corp.test", time.Now().UnixNano())
	var userID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, email, passwordHash, roleID).Scan(&userID); err != nil {
		t.Fatalf("insert reset test user: %v", err)
	}

	return userID, email, initialPassword
}

// countResetRows counts password_resets rows for a token hash, optionally
// narrowing to rows already marked used.
func countResetRows(t *testing.T, app *server.App, tokenHash string, onlyUsed bool) int {
	t.Helper()
	query := "SELECT COUNT(1) FROM password_resets WHERE token_hash = $1"
	if onlyUsed {
		query += " AND used_at IS NOT NULL"
	}
	var n int
	if err := app.DB.QueryRow(context.Background(), query, tokenHash).Scan(&n); err != nil {
		t.Fatalf("failed to count password resets: %v", err)
	}
	return n
}

func postHandlerJSON(t *testing.T, handlerFunc http.HandlerFunc, path string, body any) (int, responseEnvelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.10:4321"
	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)

	var env responseEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return recorder.Code, env
}

func extractResetToken(t *testing.T, body string) string {
	t.Helper()
	link := regexp.MustCompile(`https?://\S+`).FindString(body)
	if link == "" {
		t.Fatalf("no reset link found in mail body %q", body)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse reset link %q: %v", link, err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatalf("reset link %q carries no token parameter", link)
	}
	return token
}
