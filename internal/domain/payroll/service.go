package payroll

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	cryptoutil "paycore/internal/platform/crypto"
)

type Service struct {
	store      StoreAPI
	crypto     *cryptoutil.Service
	payslipDir string
}

func NewService(store StoreAPI, crypto *cryptoutil.Service, payslipDir string) *Service {
	if payslipDir == "" {
		payslipDir = "storage/payslips"
	}
	return &Service{store: store, crypto: crypto, payslipDir: payslipDir}
}

// Preview computes one employee's salary for a month without persisting
// anything. A zero workingDays falls back to the employee's configured value.
func (s *Service) Preview(ctx context.Context, employeeID string, year, month, workingDays int) (SalaryRecord, error) {
	employee, err := s.store.EmployeePayData(ctx, employeeID)
	if err != nil {
		return SalaryRecord{}, err
	}
	if employee.Status != EmployeeStatusActive {
		return SalaryRecord{}, ErrEmployeeInactive
	}
	return s.computeRecord(ctx, employee, year, month, workingDays)
}

func (s *Service) computeRecord(ctx context.Context, employee EmployeePayData, year, month, workingDays int) (SalaryRecord, error) {
	attendance, err := s.store.AttendanceForMonth(ctx, employee.EmployeeID, year, month)
	if err != nil {
		return SalaryRecord{}, err
	}
	deductions, err := s.store.DeductionTotal(ctx, employee.EmployeeID, year, month)
	if err != nil {
		return SalaryRecord{}, err
	}

	structure := employee.Compensation(workingDays)
	breakdown, err := ComputeMonthlySalary(structure, attendance, deductions)
	if err != nil {
		return SalaryRecord{}, err
	}

	record := SalaryRecord{
		EmployeeID:   employee.EmployeeID,
		EmployeeName: employee.FirstName + " " + employee.LastName,
		Month:        month,
		Year:         year,
		WorkingDays:  structure.WorkingDays,
		Breakdown:    breakdown,
		Currency:     employee.Currency,
		Warnings:     recordWarnings(employee, breakdown, len(attendance)),
		Status:       RecordStatusDraft,
	}
	return record, nil
}

func recordWarnings(employee EmployeePayData, breakdown SalaryBreakdown, attendanceDays int) []string {
	var warnings []string
	if !employee.HasBankAccount() {
		warnings = append(warnings, WarningMissingBank)
	}
	if breakdown.NetSalary < 0 {
		warnings = append(warnings, WarningNegativeNet)
	}
	if attendanceDays == 0 {
		warnings = append(warnings, WarningNoAttendance)
	}
	return warnings
}

// Run computes and stores draft salary records for every active employee.
// Re-running a month overwrites drafts; a distributed month must be
// reopened first.
func (s *Service) Run(ctx context.Context, year, month, workingDays int) (RunResult, error) {
	state, err := s.store.MonthState(ctx, year, month)
	if err != nil {
		return RunResult{}, err
	}
	if state.Distributed() {
		return RunResult{}, ErrMonthDistributed
	}

	employees, err := s.store.ListActiveEmployeesForRun(ctx, EmployeeStatusActive)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Month: month, Year: year, WorkingDays: workingDays, Warnings: map[string]int{}}
	for _, employee := range employees {
		record, err := s.computeRecord(ctx, employee, year, month, workingDays)
		if err != nil {
			return RunResult{}, fmt.Errorf("employee %s: %w", employee.EmployeeID, err)
		}
		if _, err := s.store.UpsertSalaryRecord(ctx, record); err != nil {
			return RunResult{}, fmt.Errorf("employee %s: %w", employee.EmployeeID, err)
		}
		for _, key := range record.Warnings {
			result.Warnings[key]++
		}
		result.EmployeeCount++
	}
	return result, nil
}

// Distribute marks every draft record of the month paid and issues payslips.
func (s *Service) Distribute(ctx context.Context, year, month int) (DistributeResult, []PayslipKey, error) {
	state, err := s.store.MonthState(ctx, year, month)
	if err != nil {
		return DistributeResult{}, nil, err
	}
	if state.Total == 0 {
		return DistributeResult{}, nil, ErrNoRecords
	}
	if state.Distributed() {
		return DistributeResult{}, nil, ErrMonthDistributed
	}

	paid, err := s.store.MarkMonthPaid(ctx, year, month)
	if err != nil {
		return DistributeResult{}, nil, err
	}
	if err := s.store.CreatePayslipsForMonth(ctx, year, month); err != nil {
		return DistributeResult{}, nil, err
	}
	keys, err := s.store.ListPayslipKeys(ctx, year, month)
	if err != nil {
		return DistributeResult{}, nil, err
	}
	return DistributeResult{Month: month, Year: year, RecordsPaid: paid, PayslipCount: len(keys)}, keys, nil
}

// Reopen reverts a distributed month to draft and withdraws its payslips.
func (s *Service) Reopen(ctx context.Context, year, month int) (int, error) {
	reverted, err := s.store.ReopenMonth(ctx, year, month)
	if err != nil {
		return 0, err
	}
	if reverted == 0 {
		return 0, ErrMonthNotDistributed
	}
	if err := s.store.DeletePayslipsForMonth(ctx, year, month); err != nil {
		return 0, err
	}
	return reverted, nil
}

func (s *Service) Summary(ctx context.Context, year, month int) (MonthSummary, error) {
	summary, err := s.store.SummarizeMonth(ctx, year, month)
	if err != nil {
		return MonthSummary{}, err
	}
	state, err := s.store.MonthState(ctx, year, month)
	if err != nil {
		return MonthSummary{}, err
	}
	switch {
	case state.Total == 0:
		summary.Status = MonthStatusEmpty
	case state.Distributed():
		summary.Status = MonthStatusPaid
	default:
		summary.Status = MonthStatusDraft
	}
	return summary, nil
}

func (s *Service) Register(ctx context.Context, year, month int) ([]RegisterRow, error) {
	return s.store.RegisterRows(ctx, year, month)
}

func (s *Service) RecordForEmployee(ctx context.Context, employeeID string, year, month int) (SalaryRecord, error) {
	return s.store.SalaryRecordForEmployee(ctx, employeeID, year, month)
}

func (s *Service) ListRecords(ctx context.Context, year, month, limit, offset int) ([]SalaryRecord, int, error) {
	return s.store.ListSalaryRecords(ctx, year, month, limit, offset)
}

func (s *Service) AddDeduction(ctx context.Context, employeeID string, year, month int, description string, amount float64, createdBy string) (string, error) {
	if _, err := s.store.EmployeePayData(ctx, employeeID); err != nil {
		return "", err
	}
	return s.store.CreateDeduction(ctx, employeeID, year, month, description, amount, createdBy)
}

func (s *Service) ListDeductions(ctx context.Context, year, month int, employeeID string, limit, offset int) ([]Deduction, int, error) {
	return s.store.ListDeductions(ctx, year, month, employeeID, limit, offset)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, userID)
}

func (s *Service) EmployeeUserID(ctx context.Context, employeeID string) (string, error) {
	return s.store.EmployeeUserID(ctx, employeeID)
}

func (s *Service) ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, int, error) {
	total, err := s.store.CountPayslips(ctx, employeeID)
	if err != nil {
		return nil, 0, err
	}
	slips, err := s.store.ListPayslips(ctx, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return slips, total, nil
}

func (s *Service) PayslipByID(ctx context.Context, payslipID string) (Payslip, error) {
	return s.store.PayslipByID(ctx, payslipID)
}

// GeneratePayslipPDF renders the payslip to disk and records its location.
// With an encryption key configured the file is sealed and stored as .enc.
func (s *Service) GeneratePayslipPDF(ctx context.Context, payslipID string) (string, error) {
	data, err := s.store.PayslipPDFData(ctx, payslipID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.payslipDir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(s.payslipDir, data.Number+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip "+data.Number)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s (%s)", data.FirstName, data.LastName, data.EmployeeNo))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", data.Email))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s %d", monthName(data.Month), data.Year))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Gross monthly: %.2f %s", data.Breakdown.GrossMonthly, data.Currency))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Days worked: %d full, %d half", data.Breakdown.FullDays, data.Breakdown.HalfDays))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Daily wage: %.2f %s", data.Breakdown.DailyWage, data.Currency))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Earned: %.2f %s", data.Breakdown.TotalSalary, data.Currency))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Income tax: %.2f %s", data.Breakdown.Tax, data.Currency))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Provident fund: %.2f %s", data.Breakdown.PF, data.Currency))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Other deductions: %.2f %s", data.Breakdown.OtherDeductions, data.Currency))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Net pay: %.2f %s", data.Breakdown.NetSalary, data.Currency))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	finalPath := filePath
	if s.crypto != nil && s.crypto.Configured() {
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := s.crypto.Encrypt(raw)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		finalPath = encryptedPath
	}

	if err := s.store.UpdatePayslipFileURL(ctx, payslipID, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}

// ReadPayslipFile loads a rendered payslip, transparently decrypting
// sealed files.
func (s *Service) ReadPayslipFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".enc" && s.crypto != nil && s.crypto.Configured() {
		return s.crypto.Decrypt(raw)
	}
	return raw, nil
}

func monthName(month int) string {
	if month < 1 || month > 12 {
		return "Unknown"
	}
	return [...]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}[month-1]
}
