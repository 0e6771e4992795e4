package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func monthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (s *Store) ListActiveEmployeesForRun(ctx context.Context, status string) ([]EmployeePayData, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, first_name, last_name, email, status,
           basic_salary, hra, allowances, working_days, currency,
           COALESCE(bank_account, ''), bank_account_enc
    FROM employees
    WHERE status = $1
    ORDER BY last_name, first_name
  `, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeePayData
	for rows.Next() {
		var employee EmployeePayData
		if err := rows.Scan(&employee.EmployeeID, &employee.FirstName, &employee.LastName, &employee.Email, &employee.Status,
			&employee.Basic, &employee.HRA, &employee.Allowances, &employee.WorkingDays, &employee.Currency,
			&employee.BankPlain, &employee.BankEnc); err != nil {
			return nil, err
		}
		out = append(out, employee)
	}
	return out, rows.Err()
}

func (s *Store) EmployeePayData(ctx context.Context, employeeID string) (EmployeePayData, error) {
	var employee EmployeePayData
	err := s.DB.QueryRow(ctx, `
    SELECT id, first_name, last_name, email, status,
           basic_salary, hra, allowances, working_days, currency,
           COALESCE(bank_account, ''), bank_account_enc
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&employee.EmployeeID, &employee.FirstName, &employee.LastName, &employee.Email, &employee.Status,
		&employee.Basic, &employee.HRA, &employee.Allowances, &employee.WorkingDays, &employee.Currency,
		&employee.BankPlain, &employee.BankEnc)
	return employee, err
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	var employeeID string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&employeeID); err != nil {
		return "", err
	}
	return employeeID, nil
}

func (s *Store) EmployeeUserID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) AttendanceForMonth(ctx context.Context, employeeID string, year, month int) ([]DayAttendance, error) {
	start, end := monthWindow(year, month)
	rows, err := s.DB.Query(ctx, `
    SELECT work_date, hours
    FROM attendance_records
    WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
    ORDER BY work_date
  `, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayAttendance
	for rows.Next() {
		var day DayAttendance
		if err := rows.Scan(&day.Date, &day.HoursWorked); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

func (s *Store) CreateDeduction(ctx context.Context, employeeID string, year, month int, description string, amount float64, createdBy string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_deductions (employee_id, year, month, description, amount, created_by)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, employeeID, year, month, description, amount, nullIfEmpty(createdBy)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListDeductions(ctx context.Context, year, month int, employeeID string, limit, offset int) ([]Deduction, int, error) {
	query := `
    SELECT id, employee_id, month, year, description, amount, COALESCE(created_by::text, ''), created_at
    FROM payroll_deductions
    WHERE year = $1 AND month = $2
  `
	countQuery := "SELECT COUNT(1) FROM payroll_deductions WHERE year = $1 AND month = $2"
	args := []any{year, month}
	if employeeID != "" {
		query += " AND employee_id = $3"
		countQuery += " AND employee_id = $3"
		args = append(args, employeeID)
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		total = 0
	}

	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deductions []Deduction
	for rows.Next() {
		var d Deduction
		if err := rows.Scan(&d.ID, &d.EmployeeID, &d.Month, &d.Year, &d.Description, &d.Amount, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		deductions = append(deductions, d)
	}
	return deductions, total, rows.Err()
}

func (s *Store) DeductionTotal(ctx context.Context, employeeID string, year, month int) (float64, error) {
	var total float64
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(amount), 0)
    FROM payroll_deductions
    WHERE employee_id = $1 AND year = $2 AND month = $3
  `, employeeID, year, month).Scan(&total)
	return total, err
}

func (s *Store) UpsertSalaryRecord(ctx context.Context, record SalaryRecord) (string, error) {
	warningsJSON, err := json.Marshal(record.Warnings)
	if err != nil {
		warningsJSON = []byte("[]")
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO salary_records (
      employee_id, month, year, working_days,
      gross_monthly, full_days, half_days, daily_wage, total_salary,
      tax, pf, other_deductions, net_salary,
      currency, warnings_json, status
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    ON CONFLICT (employee_id, month, year)
    DO UPDATE SET
      working_days = EXCLUDED.working_days,
      gross_monthly = EXCLUDED.gross_monthly,
      full_days = EXCLUDED.full_days,
      half_days = EXCLUDED.half_days,
      daily_wage = EXCLUDED.daily_wage,
      total_salary = EXCLUDED.total_salary,
      tax = EXCLUDED.tax,
      pf = EXCLUDED.pf,
      other_deductions = EXCLUDED.other_deductions,
      net_salary = EXCLUDED.net_salary,
      currency = EXCLUDED.currency,
      warnings_json = EXCLUDED.warnings_json,
      updated_at = now()
    RETURNING id
  `, record.EmployeeID, record.Month, record.Year, record.WorkingDays,
		record.Breakdown.GrossMonthly, record.Breakdown.FullDays, record.Breakdown.HalfDays,
		record.Breakdown.DailyWage, record.Breakdown.TotalSalary,
		record.Breakdown.Tax, record.Breakdown.PF, record.Breakdown.OtherDeductions, record.Breakdown.NetSalary,
		record.Currency, warningsJSON, RecordStatusDraft).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const salaryRecordColumns = `
    r.id, r.employee_id, e.first_name || ' ' || e.last_name,
    r.month, r.year, r.working_days,
    r.gross_monthly, r.full_days, r.half_days, r.daily_wage, r.total_salary,
    r.tax, r.pf, r.other_deductions, r.net_salary,
    r.currency, r.warnings_json, r.status, r.paid_at, r.created_at, r.updated_at
`

func scanSalaryRecord(row pgx.Row) (SalaryRecord, error) {
	var record SalaryRecord
	var warningsJSON []byte
	err := row.Scan(&record.ID, &record.EmployeeID, &record.EmployeeName,
		&record.Month, &record.Year, &record.WorkingDays,
		&record.Breakdown.GrossMonthly, &record.Breakdown.FullDays, &record.Breakdown.HalfDays,
		&record.Breakdown.DailyWage, &record.Breakdown.TotalSalary,
		&record.Breakdown.Tax, &record.Breakdown.PF, &record.Breakdown.OtherDeductions, &record.Breakdown.NetSalary,
		&record.Currency, &warningsJSON, &record.Status, &record.PaidAt, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return SalaryRecord{}, err
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &record.Warnings); err != nil {
			record.Warnings = nil
		}
	}
	return record, nil
}

func (s *Store) SalaryRecordForEmployee(ctx context.Context, employeeID string, year, month int) (SalaryRecord, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+salaryRecordColumns+`
    FROM salary_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.employee_id = $1 AND r.year = $2 AND r.month = $3
  `, employeeID, year, month)
	record, err := scanSalaryRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, ErrRecordNotFound
	}
	return record, err
}

func (s *Store) ListSalaryRecords(ctx context.Context, year, month, limit, offset int) ([]SalaryRecord, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM salary_records WHERE year = $1 AND month = $2", year, month).Scan(&total); err != nil {
		total = 0
	}

	rows, err := s.DB.Query(ctx, `
    SELECT `+salaryRecordColumns+`
    FROM salary_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.year = $1 AND r.month = $2
    ORDER BY e.last_name, e.first_name
    LIMIT $3 OFFSET $4
  `, year, month, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []SalaryRecord
	for rows.Next() {
		record, err := scanSalaryRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}

func (s *Store) MonthState(ctx context.Context, year, month int) (MonthState, error) {
	var state MonthState
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(1) FILTER (WHERE status = $3)
    FROM salary_records
    WHERE year = $1 AND month = $2
  `, year, month, RecordStatusPaid).Scan(&state.Total, &state.Paid)
	return state, err
}

func (s *Store) MarkMonthPaid(ctx context.Context, year, month int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_records
    SET status = $3, paid_at = now(), updated_at = now()
    WHERE year = $1 AND month = $2 AND status = $4
  `, year, month, RecordStatusPaid, RecordStatusDraft)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) ReopenMonth(ctx context.Context, year, month int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_records
    SET status = $3, paid_at = NULL, updated_at = now()
    WHERE year = $1 AND month = $2 AND status = $4
  `, year, month, RecordStatusDraft, RecordStatusPaid)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) SummarizeMonth(ctx context.Context, year, month int) (MonthSummary, error) {
	summary := MonthSummary{Month: month, Year: year, Warnings: map[string]int{}}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1),
           COALESCE(SUM(gross_monthly), 0),
           COALESCE(SUM(total_salary), 0),
           COALESCE(SUM(tax), 0),
           COALESCE(SUM(pf), 0),
           COALESCE(SUM(other_deductions), 0),
           COALESCE(SUM(net_salary), 0)
    FROM salary_records
    WHERE year = $1 AND month = $2
  `, year, month).Scan(&summary.EmployeeCount, &summary.TotalGross, &summary.TotalEarned,
		&summary.TotalTax, &summary.TotalPF, &summary.TotalDeductions, &summary.TotalNet); err != nil {
		return summary, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT warnings_json
    FROM salary_records
    WHERE year = $1 AND month = $2
  `, year, month)
	if err != nil {
		return summary, nil
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var warnings []string
		if err := json.Unmarshal(raw, &warnings); err != nil {
			continue
		}
		for _, key := range warnings {
			summary.Warnings[key]++
		}
	}
	return summary, nil
}

func (s *Store) RegisterRows(ctx context.Context, year, month int) ([]RegisterRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.employee_no, e.first_name, e.last_name,
           r.gross_monthly, r.full_days, r.half_days, r.daily_wage, r.total_salary,
           r.tax, r.pf, r.other_deductions, r.net_salary,
           r.currency, r.status, r.warnings_json
    FROM salary_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.year = $1 AND r.month = $2
    ORDER BY e.last_name, e.first_name
  `, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RegisterRow
	for rows.Next() {
		var row RegisterRow
		var warningsJSON []byte
		if err := rows.Scan(&row.EmployeeID, &row.EmployeeNumber, &row.FirstName, &row.LastName,
			&row.Breakdown.GrossMonthly, &row.Breakdown.FullDays, &row.Breakdown.HalfDays,
			&row.Breakdown.DailyWage, &row.Breakdown.TotalSalary,
			&row.Breakdown.Tax, &row.Breakdown.PF, &row.Breakdown.OtherDeductions, &row.Breakdown.NetSalary,
			&row.Currency, &row.Status, &warningsJSON); err != nil {
			return nil, err
		}
		if len(warningsJSON) > 0 {
			_ = json.Unmarshal(warningsJSON, &row.Warnings)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) CreatePayslipsForMonth(ctx context.Context, year, month int) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO payslips (salary_record_id, employee_id, month, year, number)
    SELECT r.id, r.employee_id, r.month, r.year,
           'PS-' || r.year::text || lpad(r.month::text, 2, '0') || '-' || e.employee_no
    FROM salary_records r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.year = $1 AND r.month = $2
    ON CONFLICT DO NOTHING
  `, year, month)
	return err
}

func (s *Store) DeletePayslipsForMonth(ctx context.Context, year, month int) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM payslips WHERE year = $1 AND month = $2", year, month)
	return err
}

func (s *Store) ListPayslipKeys(ctx context.Context, year, month int) ([]PayslipKey, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.employee_id, COALESCE(e.user_id::text, ''), e.email
    FROM payslips p
    JOIN employees e ON p.employee_id = e.id
    WHERE p.year = $1 AND p.month = $2
  `, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PayslipKey
	for rows.Next() {
		var key PayslipKey
		if err := rows.Scan(&key.ID, &key.EmployeeID, &key.UserID, &key.Email); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (s *Store) CountPayslips(ctx context.Context, employeeID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips WHERE employee_id = $1", employeeID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPayslips(ctx context.Context, employeeID string, limit, offset int) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.employee_id, p.month, p.year, p.number,
           r.net_salary, r.currency, COALESCE(p.file_url, ''), p.created_at
    FROM payslips p
    JOIN salary_records r ON p.salary_record_id = r.id
    WHERE p.employee_id = $1
    ORDER BY p.year DESC, p.month DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slips []Payslip
	for rows.Next() {
		var slip Payslip
		if err := rows.Scan(&slip.ID, &slip.EmployeeID, &slip.Month, &slip.Year, &slip.Number,
			&slip.Net, &slip.Currency, &slip.FileURL, &slip.CreatedAt); err != nil {
			return nil, err
		}
		slips = append(slips, slip)
	}
	return slips, rows.Err()
}

func (s *Store) PayslipByID(ctx context.Context, payslipID string) (Payslip, error) {
	var slip Payslip
	err := s.DB.QueryRow(ctx, `
    SELECT p.id, p.employee_id, p.month, p.year, p.number,
           r.net_salary, r.currency, COALESCE(p.file_url, ''), p.created_at
    FROM payslips p
    JOIN salary_records r ON p.salary_record_id = r.id
    WHERE p.id = $1
  `, payslipID).Scan(&slip.ID, &slip.EmployeeID, &slip.Month, &slip.Year, &slip.Number,
		&slip.Net, &slip.Currency, &slip.FileURL, &slip.CreatedAt)
	return slip, err
}

func (s *Store) UpdatePayslipFileURL(ctx context.Context, payslipID, fileURL string) error {
	_, err := s.DB.Exec(ctx, "UPDATE payslips SET file_url = $1 WHERE id = $2", fileURL, payslipID)
	return err
}

func (s *Store) PayslipPDFData(ctx context.Context, payslipID string) (PayslipPDFData, error) {
	var data PayslipPDFData
	err := s.DB.QueryRow(ctx, `
    SELECT p.id, p.number, e.first_name, e.last_name, e.email, e.employee_no,
           p.month, p.year, r.currency,
           r.gross_monthly, r.full_days, r.half_days, r.daily_wage, r.total_salary,
           r.tax, r.pf, r.other_deductions, r.net_salary
    FROM payslips p
    JOIN salary_records r ON p.salary_record_id = r.id
    JOIN employees e ON p.employee_id = e.id
    WHERE p.id = $1
  `, payslipID).Scan(&data.PayslipID, &data.Number, &data.FirstName, &data.LastName, &data.Email, &data.EmployeeNo,
		&data.Month, &data.Year, &data.Currency,
		&data.Breakdown.GrossMonthly, &data.Breakdown.FullDays, &data.Breakdown.HalfDays,
		&data.Breakdown.DailyWage, &data.Breakdown.TotalSalary,
		&data.Breakdown.Tax, &data.Breakdown.PF, &data.Breakdown.OtherDeductions, &data.Breakdown.NetSalary)
	if err != nil {
		return PayslipPDFData{}, err
	}
	return data, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
