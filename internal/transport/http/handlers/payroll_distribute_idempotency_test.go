package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"paycore/internal/domain/payroll"
)

// TestDistributeIdempotencyReplay pins down the Idempotency-Key contract on
// payroll distribution: a retry with the same key and month is answered from
// the stored response, and reusing the key for a different month is refused.
func TestDistributeIdempotencyReplay(t *testing.T) {
	app, ts := startTestApp(t)
	defer app.Close()
	defer ts.Close()

	client := ts.Client()
	adminToken := login(t, client, ts.URL, seedAdminEmail, seedAdminPassword)

	const year, month = 2026, 4
	ensureMonthOpen(t, client, ts.URL, adminToken, year, month)

	employeeID := createEmployee(t, client, ts.URL, adminToken, uniqueEmail("idem"))
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-04-01", 8)
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-04-02", 8)

	runEnv := postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"year":  year,
		"month": month,
	})
	var runResult payroll.RunResult
	decodeData(t, runEnv, &runResult)
	if runResult.EmployeeCount < 1 {
		t.Fatalf("expected at least one employee in run, got %d", runResult.EmployeeCount)
	}

	key := fmt.Sprintf("distribute-%d", time.Now().UnixNano())
	distributeURL := fmt.Sprintf("%s/api/v1/payroll/%d/%d/distribute", ts.URL, year, month)

	status, first := request(t, client, http.MethodPost, distributeURL, adminToken, map[string]any{}, map[string]string{
		"Idempotency-Key": key,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 distribute, got %d: %+v", status, first.Error)
	}
	var firstResult payroll.DistributeResult
	decodeData(t, first, &firstResult)
	if firstResult.RecordsPaid < 1 || firstResult.PayslipCount < 1 {
		t.Fatalf("expected paid records and payslips, got %+v", firstResult)
	}

	// Retrying with the same key and month replays the stored result
	// without distributing twice.
	status, second := request(t, client, http.MethodPost, distributeURL, adminToken, map[string]any{}, map[string]string{
		"Idempotency-Key": key,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 replay, got %d: %+v", status, second.Error)
	}
	var secondResult payroll.DistributeResult
	decodeData(t, second, &secondResult)
	if secondResult != firstResult {
		t.Fatalf("expected replayed result %+v, got %+v", firstResult, secondResult)
	}
	if slips := listPayslips(t, client, ts.URL, adminToken, employeeID); len(slips) != 1 {
		t.Fatalf("expected one payslip after replay, got %d", len(slips))
	}

	// Without a key the month state machine still refuses a second
	// distribution.
	bare := postJSONStatus(t, client, distributeURL, adminToken, map[string]any{}, http.StatusBadRequest)
	if bare.Error == nil || bare.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %+v", bare.Error)
	}

	// The same key against a different month is a conflict, not a replay.
	otherURL := fmt.Sprintf("%s/api/v1/payroll/%d/%d/distribute", ts.URL, year, month+1)
	status, conflict := request(t, client, http.MethodPost, otherURL, adminToken, map[string]any{}, map[string]string{
		"Idempotency-Key": key,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d: %+v", status, conflict.Error)
	}
	if conflict.Error == nil || conflict.Error.Code != "idempotency_conflict" {
		t.Fatalf("expected idempotency_conflict, got %+v", conflict.Error)
	}

	postJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/reopen", ts.URL, year, month), adminToken, map[string]any{
		"reason": "idempotency suite cleanup",
	})
}
