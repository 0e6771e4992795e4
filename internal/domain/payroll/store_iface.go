package payroll

import "context"

type StoreAPI interface {
	ListActiveEmployeesForRun(ctx context.Context, status string) ([]EmployeePayData, error)
	EmployeePayData(ctx context.Context, employeeID string) (EmployeePayData, error)
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	EmployeeUserID(ctx context.Context, employeeID string) (string, error)
	AttendanceForMonth(ctx context.Context, employeeID string, year, month int) ([]DayAttendance, error)

	CreateDeduction(ctx context.Context, employeeID string, year, month int, description string, amount float64, createdBy string) (string, error)
	ListDeductions(ctx context.Context, year, month int, employeeID string, limit, offset int) ([]Deduction, int, error)
	DeductionTotal(ctx context.Context, employeeID string, year, month int) (float64, error)

	UpsertSalaryRecord(ctx context.Context, record SalaryRecord) (string, error)
	SalaryRecordForEmployee(ctx context.Context, employeeID string, year, month int) (SalaryRecord, error)
	ListSalaryRecords(ctx context.Context, year, month, limit, offset int) ([]SalaryRecord, int, error)
	MonthState(ctx context.Context, year, month int) (MonthState, error)
	MarkMonthPaid(ctx context.Context, year, month int) (int, error)
	ReopenMonth(ctx context.Context, year, month int) (int, error)
	SummarizeMonth(ctx context.Context, year, month int) (MonthSummary, error)
	RegisterRows(ctx context.Context, year, month int) ([]RegisterRow, error)

	CreatePayslipsForMonth(ctx context.Context, year, month int) error
	DeletePayslipsForMonth(ctx context.Context, year, month int) error
	ListPayslipKeys(ctx context.Context, year, month int) ([]PayslipKey, error)
	CountPayslips(ctx context.Context, employeeID string) (int, error)
	ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, error)
	PayslipByID(ctx context.Context, payslipID string) (Payslip, error)
	UpdatePayslipFileURL(ctx context.Context, payslipID, fileURL string) error
	PayslipPDFData(ctx context.Context, payslipID string) (PayslipPDFData, error)
}
