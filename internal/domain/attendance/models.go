package attendance

import "time"

const (
	SourceManual = "manual"
	SourceImport = "import"
)

// Record is one employee's hours for one calendar day. Days are unique
// per employee; writing the same day again replaces the entry.
type Record struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`
	Hours      float64   `json:"hours"`
	Note       string    `json:"note,omitempty"`
	Source     string    `json:"source"`
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MonthlySummary classifies a month of records the same way payroll does.
type MonthlySummary struct {
	EmployeeID      string  `json:"employeeId"`
	Month           int     `json:"month"`
	Year            int     `json:"year"`
	FullDays        int     `json:"fullDays"`
	HalfDays        int     `json:"halfDays"`
	AbsentDays      int     `json:"absentDays"`
	DaysRecorded    int     `json:"daysRecorded"`
	TotalHours      float64 `json:"totalHours"`
	WorkingWeekdays int     `json:"workingWeekdays"`
}

type ImportIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Issues   []ImportIssue `json:"issues,omitempty"`
}
