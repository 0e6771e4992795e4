package reports

import "time"

// MonthlyCost aggregates the salary ledger for one month across the company.
type MonthlyCost struct {
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	Employees       int     `json:"employees"`
	GrossMonthly    float64 `json:"grossMonthly"`
	TotalSalary     float64 `json:"totalSalary"`
	Tax             float64 `json:"tax"`
	PF              float64 `json:"pf"`
	OtherDeductions float64 `json:"otherDeductions"`
	NetSalary       float64 `json:"netSalary"`
	DraftRecords    int     `json:"draftRecords"`
	PaidRecords     int     `json:"paidRecords"`
}

// DepartmentCost breaks a single payroll month down by department. Records
// for employees without a department land in the "Unassigned" bucket.
type DepartmentCost struct {
	DepartmentID   string  `json:"departmentId,omitempty"`
	DepartmentName string  `json:"departmentName"`
	Employees      int     `json:"employees"`
	TotalSalary    float64 `json:"totalSalary"`
	Tax            float64 `json:"tax"`
	PF             float64 `json:"pf"`
	NetSalary      float64 `json:"netSalary"`
}

// AttendanceTotals summarises the hours one employee logged in a month,
// bucketed with the same thresholds the salary computation uses.
type AttendanceTotals struct {
	EmployeeID   string  `json:"employeeId"`
	EmployeeNo   string  `json:"employeeNo,omitempty"`
	EmployeeName string  `json:"employeeName"`
	DaysLogged   int     `json:"daysLogged"`
	FullDays     int     `json:"fullDays"`
	HalfDays     int     `json:"halfDays"`
	AbsentDays   int     `json:"absentDays"`
	TotalHours   float64 `json:"totalHours"`
}

// EmployeeDashboard carries the landing numbers for a regular employee.
type EmployeeDashboard struct {
	PayslipCount      int      `json:"payslipCount"`
	LastNetSalary     *float64 `json:"lastNetSalary,omitempty"`
	DaysLoggedInMonth int      `json:"daysLoggedInMonth"`
}

// OperatorDashboard carries the landing numbers for payroll operators.
type OperatorDashboard struct {
	ActiveEmployees int     `json:"activeEmployees"`
	DraftRecords    int     `json:"draftRecords"`
	PaidRecords     int     `json:"paidRecords"`
	MonthNetSalary  float64 `json:"monthNetSalary"`
	PendingJobRuns  int     `json:"pendingJobRuns"`
}

// JobRun mirrors one background job execution from the job_runs ledger.
type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// JobRunFilter narrows job run listings. Zero-value fields are ignored.
type JobRunFilter struct {
	JobType string
	Status  string
	From    *time.Time
	To      *time.Time
}
