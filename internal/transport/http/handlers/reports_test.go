package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"paycore/internal/domain/reports"
)

// TestPayrollReportsAndDashboards distributes one month and checks the
// aggregates the reporting endpoints derive from it, plus the role split
// between operator and employee views.
func TestPayrollReportsAndDashboards(t *testing.T) {
	app, ts := startTestApp(t)
	defer app.Close()
	defer ts.Close()

	client := ts.Client()
	adminToken := login(t, client, ts.URL, seedAdminEmail, seedAdminPassword)

	const year, month = 2026, 8
	ensureMonthOpen(t, client, ts.URL, adminToken, year, month)

	email := uniqueEmail("reports")
	password := "Reportpass123!"
	employeeID := createEmployeeWithLogin(t, client, ts.URL, adminToken, email, password)
	employeeToken := login(t, client, ts.URL, email, password)

	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-08-03", 8)
	recordAttendance(t, client, ts.URL, adminToken, employeeID, "2026-08-04", 8)

	postJSON(t, client, ts.URL+"/api/v1/payroll/runs", adminToken, map[string]any{
		"year":  year,
		"month": month,
	})
	postJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/distribute", ts.URL, year, month), adminToken, map[string]any{})

	costsEnv := getJSON(t, client, fmt.Sprintf("%s/api/v1/reports/payroll-cost?year=%d", ts.URL, year), adminToken)
	var costs []reports.MonthlyCost
	decodeData(t, costsEnv, &costs)
	var monthCost *reports.MonthlyCost
	for i := range costs {
		if costs[i].Month == month {
			monthCost = &costs[i]
		}
	}
	if monthCost == nil {
		t.Fatalf("expected month %d in payroll cost report, got %+v", month, costs)
	}
	if monthCost.Employees < 1 || monthCost.PaidRecords < 1 {
		t.Fatalf("expected distributed records in cost report, got %+v", monthCost)
	}

	deptEnv := getJSON(t, client, fmt.Sprintf("%s/api/v1/reports/payroll-cost/departments?year=%d&month=%d", ts.URL, year, month), adminToken)
	var departments []reports.DepartmentCost
	decodeData(t, deptEnv, &departments)
	var unassigned *reports.DepartmentCost
	for i := range departments {
		if departments[i].DepartmentName == "Unassigned" {
			unassigned = &departments[i]
		}
	}
	if unassigned == nil || unassigned.Employees < 1 {
		t.Fatalf("expected Unassigned department bucket, got %+v", departments)
	}

	attEnv := getJSON(t, client, fmt.Sprintf("%s/api/v1/reports/attendance?year=%d&month=%d", ts.URL, year, month), adminToken)
	var totals []reports.AttendanceTotals
	decodeData(t, attEnv, &totals)
	var mine *reports.AttendanceTotals
	for i := range totals {
		if totals[i].EmployeeID == employeeID {
			mine = &totals[i]
		}
	}
	if mine == nil {
		t.Fatalf("expected attendance totals for employee, got %+v", totals)
	}
	if mine.DaysLogged != 2 || mine.FullDays != 2 {
		t.Fatalf("expected two logged full days, got %+v", mine)
	}
	assertMoney(t, "totalHours", mine.TotalHours, 16)

	dashEnv := getJSON(t, client, ts.URL+"/api/v1/reports/dashboard/operator", adminToken)
	var operator reports.OperatorDashboard
	decodeData(t, dashEnv, &operator)
	if operator.ActiveEmployees < 1 {
		t.Fatalf("expected active employees on operator dashboard, got %+v", operator)
	}

	runsEnv := getJSON(t, client, ts.URL+"/api/v1/reports/job-runs", adminToken)
	var jobRuns []reports.JobRun
	decodeData(t, runsEnv, &jobRuns)

	badID := getJSONStatus(t, client, ts.URL+"/api/v1/reports/job-runs/not-a-uuid", adminToken, http.StatusBadRequest)
	if badID.Error == nil || badID.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error for malformed run id, got %+v", badID.Error)
	}
	missing := getJSONStatus(t, client, ts.URL+"/api/v1/reports/job-runs/"+uuid.NewString(), adminToken, http.StatusNotFound)
	if missing.Error == nil || missing.Error.Code != "not_found" {
		t.Fatalf("expected not_found for unknown run id, got %+v", missing.Error)
	}

	// Two full days at a 200 daily wage less the 360 provident fund
	// contribution nets 40 for the month.
	empDashEnv := getJSON(t, client, ts.URL+"/api/v1/reports/dashboard/employee", employeeToken)
	var dashboard reports.EmployeeDashboard
	decodeData(t, empDashEnv, &dashboard)
	if dashboard.PayslipCount != 1 {
		t.Fatalf("expected one payslip on employee dashboard, got %+v", dashboard)
	}
	if dashboard.LastNetSalary == nil {
		t.Fatalf("expected last net salary on employee dashboard, got %+v", dashboard)
	}
	assertMoney(t, "lastNetSalary", *dashboard.LastNetSalary, 40)

	// Company-wide reports stay closed to regular employees.
	denied := getJSONStatus(t, client, fmt.Sprintf("%s/api/v1/reports/payroll-cost?year=%d", ts.URL, year), employeeToken, http.StatusForbidden)
	if denied.Error == nil || denied.Error.Code != "forbidden" {
		t.Fatalf("expected forbidden for employee cost report, got %+v", denied.Error)
	}
	getJSONStatus(t, client, ts.URL+"/api/v1/reports/job-runs", employeeToken, http.StatusForbidden)
	getJSONStatus(t, client, fmt.Sprintf("%s/api/v1/reports/attendance?year=%d&month=%d", ts.URL, year, month), employeeToken, http.StatusForbidden)

	postJSON(t, client, fmt.Sprintf("%s/api/v1/payroll/%d/%d/reopen", ts.URL, year, month), adminToken, map[string]any{
		"reason": "reports suite cleanup",
	})
}
