package payroll

import "time"

// SalaryRecord is one row of the salary ledger. The ledger is keyed uniquely
// by employee, month and year; re-running payroll for an undistributed month
// overwrites the row in place.
type SalaryRecord struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName,omitempty"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	WorkingDays  int             `json:"workingDays"`
	Breakdown    SalaryBreakdown `json:"breakdown"`
	Currency     string          `json:"currency"`
	Warnings     []string        `json:"warnings,omitempty"`
	Status       string          `json:"status"`
	PaidAt       *time.Time      `json:"paidAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Deduction struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Payslip struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	Number     string    `json:"number"`
	Net        float64   `json:"net"`
	Currency   string    `json:"currency"`
	FileURL    string    `json:"fileUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PayslipKey struct {
	ID         string
	EmployeeID string
	UserID     string
	Email      string
}

// EmployeePayData is the slice of an employee row the payroll run needs.
type EmployeePayData struct {
	EmployeeID  string
	FirstName   string
	LastName    string
	Email       string
	Status      string
	Basic       float64
	HRA         float64
	Allowances  float64
	WorkingDays int
	Currency    string
	BankPlain   string
	BankEnc     []byte
}

func (e EmployeePayData) Compensation(workingDays int) CompensationStructure {
	if workingDays <= 0 {
		workingDays = e.WorkingDays
	}
	return CompensationStructure{
		Basic:       e.Basic,
		HRA:         e.HRA,
		Allowances:  e.Allowances,
		WorkingDays: workingDays,
	}
}

func (e EmployeePayData) HasBankAccount() bool {
	return e.BankPlain != "" || len(e.BankEnc) > 0
}

type RunResult struct {
	Month         int            `json:"month"`
	Year          int            `json:"year"`
	WorkingDays   int            `json:"workingDays"`
	EmployeeCount int            `json:"employeeCount"`
	Warnings      map[string]int `json:"warnings"`
}

type DistributeResult struct {
	Month        int `json:"month"`
	Year         int `json:"year"`
	RecordsPaid  int `json:"recordsPaid"`
	PayslipCount int `json:"payslipCount"`
}

type MonthSummary struct {
	Month           int            `json:"month"`
	Year            int            `json:"year"`
	Status          string         `json:"status"`
	EmployeeCount   int            `json:"employeeCount"`
	TotalGross      float64        `json:"totalGross"`
	TotalEarned     float64        `json:"totalEarned"`
	TotalTax        float64        `json:"totalTax"`
	TotalPF         float64        `json:"totalPf"`
	TotalDeductions float64        `json:"totalDeductions"`
	TotalNet        float64        `json:"totalNet"`
	Warnings        map[string]int `json:"warnings"`
}

type RegisterRow struct {
	EmployeeID     string
	EmployeeNumber string
	FirstName      string
	LastName       string
	Breakdown      SalaryBreakdown
	Currency       string
	Status         string
	Warnings       []string
}

type PayslipPDFData struct {
	PayslipID  string
	Number     string
	FirstName  string
	LastName   string
	Email      string
	EmployeeNo string
	Month      int
	Year       int
	Currency   string
	Breakdown  SalaryBreakdown
}

// MonthState is the derived distribution state of one ledger month.
type MonthState struct {
	Total int
	Paid  int
}

func (m MonthState) Distributed() bool {
	return m.Total > 0 && m.Paid == m.Total
}
