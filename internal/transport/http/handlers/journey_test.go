package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"paycore/internal/app/server"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// TestPayrollMonthJourney walks the whole operator flow: provision an
// employee, log a month of hours, preview the salary, run the month,
// distribute it and fetch the payslip.
func TestPayrollMonthJourney(t *testing.T) {
	app, ts := startTestApp(t)
	defer app.Close()
	defer ts.Close()

	client := ts.Client()
	adminToken := login(t, client, ts.URL, seedAdminEmail, seedAdminPassword)

	employeeID := createEmployee(t, client, ts.URL, adminToken, uniqueEmail("journey"))

	const year, month = 2026, 3
	ensureMonthOpen(t, client, ts.URL, adminToken, year, month)

	// Two full days, one half day, one zero-hour day.
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-03-02", 8)
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-03-03", 9.5)
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-03-04", 4)
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-03-05", 0)

	preview := getJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/employees/%s/preview?year=%d&month=%d", ts.URL, employeeID, year, month), adminToken)
	var previewRecord payroll.SalaryRecord
	decodeData(t, preview, &previewRecord)

	// basic 3000 + hra 600 + allowances 400 over 20 working days:
	// daily wage 200, earned 2*200 + 100 = 500, pf 360, tax 0.
	assertMoney(t, "gross", previewRecord.Breakdown.GrossMonthly, 4000)
	assertMoney(t, "dailyWage", previewRecord.Breakdown.DailyWage, 200)
	if previewRecord.Breakdown.FullDays != 2 || previewRecord.Breakdown.HalfDays != 1 {
		t.Fatalf("expected 2 full and 1 half day, got %d/%d", previewRecord.Breakdown.FullDays, previewRecord.Breakdown.HalfDays)
	}
	assertMoney(t, "earned", previewRecord.Breakdown.TotalSalary, 500)
	assertMoney(t, "tax", previewRecord.Breakdown.Tax, 0)
	assertMoney(t, "pf", previewRecord.Breakdown.PF, 360)
	assertMoney(t, "net", previewRecord.Breakdown.NetSalary, 140)

	// Nothing is persisted until a run happens; preview alone writes no row.
	recordURL := fmt.Sprintf("%s/api/v1/payroll/employees/%s/record?year=%d&month=%d", ts.URL, employeeID, year, month)
	noRecord := getJSONStatus(t, client, recordURL, adminToken, http.StatusNotFound)
	if noRecord.Error == nil || noRecord.Error.Code != "not_found" {
		t.Fatalf("expected not_found before run, got %+v", noRecord.Error)
	}

	runEnv := postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"year":  year,
		"month": month,
	})
	var runResult payroll.RunResult
	decodeData(t, runEnv, &runResult)
	if runResult.EmployeeCount < 1 {
		t.Fatalf("expected at least one employee in run, got %d", runResult.EmployeeCount)
	}

	if status := monthStatus(t, client, ts.URL, adminToken, year, month); status != payroll.MonthStatusDraft {
		t.Fatalf("expected draft month after run, got %s", status)
	}

	// The stored row mirrors what the preview computed for the same inputs.
	var stored payroll.SalaryRecord
	decodeData(t, getJSON(t, client, recordURL, adminToken), &stored)
	if stored.Status != payroll.RecordStatusDraft {
		t.Fatalf("expected draft record after run, got %s", stored.Status)
	}
	assertMoney(t, "stored net", stored.Breakdown.NetSalary, previewRecord.Breakdown.NetSalary)
	assertMoney(t, "stored gross", stored.Breakdown.GrossMonthly, previewRecord.Breakdown.GrossMonthly)

	distEnv := postJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/distribute", ts.URL, year, month), adminToken, map[string]any{})
	var distResult payroll.DistributeResult
	decodeData(t, distEnv, &distResult)
	if distResult.RecordsPaid < 1 || distResult.PayslipCount < 1 {
		t.Fatalf("expected paid records and payslips, got %+v", distResult)
	}

	if status := monthStatus(t, client, ts.URL, adminToken, year, month); status != payroll.MonthStatusPaid {
		t.Fatalf("expected paid month after distribute, got %s", status)
	}

	// Re-running a distributed month must be refused.
	rerun := postJSONStatus(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"year":  year,
		"month": month,
	}, http.StatusBadRequest)
	if rerun.Error == nil || rerun.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state for rerun of paid month, got %+v", rerun.Error)
	}

	slips := listPayslips(t, client, ts.URL, adminToken, employeeID)
	if len(slips) != 1 {
		t.Fatalf("expected exactly one payslip, got %d", len(slips))
	}
	assertMoney(t, "payslip net", slips[0].Net, 140)

	download := authorizedGet(t, client, ts.URL+"/api/v1/payroll/payslips/"+slips[0].ID+"/download", adminToken)
	defer download.Body.Close()
	if download.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 payslip download, got %d", download.StatusCode)
	}
	pdfBytes, err := io.ReadAll(download.Body)
	if err != nil {
		t.Fatalf("failed to read payslip body: %v", err)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Fatalf("expected PDF payload, got %d bytes starting %q", len(pdfBytes), string(pdfBytes[:min(8, len(pdfBytes))]))
	}

	// Reopen reverts the ledger to draft and withdraws the payslips.
	postJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/reopen", ts.URL, year, month), adminToken, map[string]any{
		"reason": "journey cleanup",
	})
	if status := monthStatus(t, client, ts.URL, adminToken, year, month); status != payroll.MonthStatusDraft {
		t.Fatalf("expected draft month after reopen, got %s", status)
	}
	if slips := listPayslips(t, client, ts.URL, adminToken, employeeID); len(slips) != 0 {
		t.Fatalf("expected payslips withdrawn after reopen, got %d", len(slips))
	}
}

// TestEmployeeSelfServiceBoundaries checks what a plain employee login can
// and cannot do.
func TestEmployeeSelfServiceBoundaries(t *testing.T) {
	app, ts := startTestApp(t)
	defer app.Close()
	defer ts.Close()

	client := ts.Client()
	adminToken := login(t, client, ts.URL, seedAdminEmail, seedAdminPassword)

	email := uniqueEmail("selfservice")
	password := "Selfservice123!"
	employeeID := createEmployeeWithLogin(t, client, ts.URL, adminToken, email, password)
	token := login(t, client, ts.URL, email, password)

	// Writes reserved for HR are refused by the permission guard.
	denied := postJSONStatus(t, client, ts.URL+"/api/v1/employees", token, map[string]any{
		"firstName":      "Nope",
		"lastName":       "Nope",
		"email":          uniqueEmail("nope"),
		"employeeNumber": uniqueNumber(),
	}, http.StatusForbidden)
	if denied.Error == nil || denied.Error.Code != "forbidden" {
		t.Fatalf("expected forbidden for employee create, got %+v", denied.Error)
	}
	postJSONStatus(t, client, ts.URL+"/api/v1/payroll/runs", token, map[string]any{
		"year":  2026,
		"month": 6,
	}, http.StatusForbidden)

	// Recording own hours works once per day; corrections are a manager job.
	recorded := postJSONStatus(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
		"date":  "2026-06-01",
		"hours": 8,
	}, http.StatusCreated)
	if !recorded.Success {
		t.Fatalf("expected created attendance, got %+v", recorded)
	}
	duplicate := postJSONStatus(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
		"date":  "2026-06-01",
		"hours": 6,
	}, http.StatusConflict)
	if duplicate.Error == nil || duplicate.Error.Code != "duplicate_attendance" {
		t.Fatalf("expected duplicate_attendance, got %+v", duplicate.Error)
	}

	summaryEnv := getJSON(t, client, fmt.Sprintf("%s/api/v1/attendance/employees/%s/summary?year=2026&month=6", ts.URL, employeeID), token)
	var summary struct {
		DaysRecorded int     `json:"daysRecorded"`
		FullDays     int     `json:"fullDays"`
		TotalHours   float64 `json:"totalHours"`
	}
	decodeData(t, summaryEnv, &summary)
	if summary.DaysRecorded != 1 || summary.FullDays != 1 {
		t.Fatalf("expected one recorded full day, got %+v", summary)
	}

	// Employees list their own payslips only; the scope is forced server-side.
	slipsEnv := getJSON(t, client, ts.URL+"/api/v1/payroll/payslips?employeeId="+employeeID, token)
	var slips []payroll.Payslip
	decodeData(t, slipsEnv, &slips)
	if len(slips) != 0 {
		t.Fatalf("expected no payslips for a fresh employee, got %d", len(slips))
	}
}

const (
	seedAdminEmail    = "admin@test.local"
	seedAdminPassword = "ChangeMe123!"
)

func startTestApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		AppBaseURL:         "https://pay.example.com",
		Environment:        "test",
		SeedAdminEmail:     seedAdminEmail,
		SeedAdminPassword:  seedAdminPassword,
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		MigrationsDir:      migrationsDir(t),
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		JobQueueSize:       16,
		PayslipDir:         t.TempDir(),
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	return app, httptest.NewServer(app.Router)
}

// migrationsDir locates the repository's migrations directory relative to
// this file, so the suite works no matter where go test is invoked from.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func uniqueNumber() string {
	return fmt.Sprintf("E%d", time.Now().UnixNano())
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	env := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &payload)
	if payload.Token == "" {
		t.Fatal("expected token in login response")
	}
	return payload.Token
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token, email string) string {
	t.Helper()
	env := postJSON(t, client, baseURL+"/api/v1/employees", token, map[string]any{
		"firstName":      "Journey",
		"lastName":       "Tester",
		"email":          email,
		"employeeNumber": uniqueNumber(),
		"basic":          3000,
		"hra":            600,
		"allowances":     400,
		"workingDays":    20,
		"currency":       "USD",
		"status":         "active",
	})
	var payload struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &payload)
	if payload.ID == "" {
		t.Fatal("expected employee id")
	}
	return payload.ID
}

func createEmployeeWithLogin(t *testing.T, client *http.Client, baseURL, token, email, password string) string {
	t.Helper()
	env := postJSON(t, client, baseURL+"/api/v1/employees", token, map[string]any{
		"firstName":         "Self",
		"lastName":          "Service",
		"email":             email,
		"employeeNumber":    uniqueNumber(),
		"basic":             3000,
		"hra":               600,
		"allowances":        400,
		"workingDays":       20,
		"currency":          "USD",
		"status":            "active",
		"createLogin":       true,
		"temporaryPassword": password,
	})
	var payload struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}
	decodeData(t, env, &payload)
	if payload.ID == "" || payload.UserID == "" {
		t.Fatalf("expected employee and user ids, got %+v", payload)
	}
	return payload.ID
}

func recordAttendance(t *testing.T, client *http.Client, baseURL, token, employeeID, date string, hours float64) {
	t.Helper()
	status, env := request(t, client, http.MethodPost, baseURL+"/api/v1/attendance", token, map[string]any{
		"employeeId": employeeID,
		"date":       date,
		"hours":      hours,
	}, nil)
	if status != http.StatusCreated && status != http.StatusOK {
		t.Fatalf("expected attendance created for %s, got %d: %+v", date, status, env.Error)
	}
}

func monthStatus(t *testing.T, client *http.Client, baseURL, token string, year, month int) string {
	t.Helper()
	env := getJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/summary", baseURL, year, month), token)
	var summary payroll.MonthSummary
	decodeData(t, env, &summary)
	return summary.Status
}

// ensureMonthOpen best-effort reopens the month so the suite can run
// repeatedly against the same database.
func ensureMonthOpen(t *testing.T, client *http.Client, baseURL, token string, year, month int) {
	t.Helper()
	_, _ = request(t, client, http.MethodPost, fmt.Sprintf("%s/api/v1/payroll/%d/%d/reopen", baseURL, year, month), token, map[string]any{
		"reason": "test setup",
	}, nil)
}

func listPayslips(t *testing.T, client *http.Client, baseURL, token, employeeID string) []payroll.Payslip {
	t.Helper()
	env := getJSON(t, client, baseURL+"/api/v1/payroll/payslips?employeeId="+employeeID, token)
	var slips []payroll.Payslip
	decodeData(t, env, &slips)
	return slips
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	status, env := request(t, client, http.MethodPost, url, token, body, nil)
	if status >= 400 {
		t.Fatalf("unexpected status %d for POST %s: %+v", status, url, env.Error)
	}
	return env
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	status, env := request(t, client, http.MethodPost, url, token, body, nil)
	if status != want {
		t.Fatalf("expected status %d for POST %s, got %d: %+v", want, url, status, env.Error)
	}
	return env
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	status, env := request(t, client, http.MethodGet, url, token, nil, nil)
	if status >= 400 {
		t.Fatalf("unexpected status %d for GET %s: %+v", status, url, env.Error)
	}
	return env
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	status, env := request(t, client, http.MethodGet, url, token, nil, nil)
	if status != want {
		t.Fatalf("expected status %d for GET %s, got %d: %+v", want, url, status, env.Error)
	}
	return env
}

func request(t *testing.T, client *http.Client, method, url, token string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, env
}

func authorizedGet(t *testing.T, client *http.Client, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeData(t *testing.T, env envelope, target any) {
	t.Helper()
	if env.Error != nil {
		t.Fatalf("expected success envelope, got error %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		t.Fatalf("failed to decode data %q: %v", env.Data, err)
	}
}

func assertMoney(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.005 {
		t.Fatalf("expected %s %.2f, got %.2f", label, want, got)
	}
}
