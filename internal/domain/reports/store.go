package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/payroll"
)

var ErrRunNotFound = errors.New("job run not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return employeeID, err
}

func (s *Store) MonthlyCosts(ctx context.Context, year int) ([]MonthlyCost, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT month,
           COUNT(1),
           COALESCE(SUM(gross_monthly), 0),
           COALESCE(SUM(total_salary), 0),
           COALESCE(SUM(tax), 0),
           COALESCE(SUM(pf), 0),
           COALESCE(SUM(other_deductions), 0),
           COALESCE(SUM(net_salary), 0),
           COUNT(1) FILTER (WHERE status = $2),
           COUNT(1) FILTER (WHERE status = $3)
    FROM salary_records
    WHERE year = $1
    GROUP BY month
    ORDER BY month
  `, year, payroll.RecordStatusDraft, payroll.RecordStatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []MonthlyCost
	for rows.Next() {
		cost := MonthlyCost{Year: year}
		if err := rows.Scan(&cost.Month, &cost.Employees, &cost.GrossMonthly, &cost.TotalSalary,
			&cost.Tax, &cost.PF, &cost.OtherDeductions, &cost.NetSalary,
			&cost.DraftRecords, &cost.PaidRecords); err != nil {
			return nil, err
		}
		costs = append(costs, cost)
	}
	return costs, rows.Err()
}

func (s *Store) DepartmentCosts(ctx context.Context, year, month int) ([]DepartmentCost, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT COALESCE(d.id::text, ''),
           COALESCE(d.name, 'Unassigned'),
           COUNT(1),
           COALESCE(SUM(sr.total_salary), 0),
           COALESCE(SUM(sr.tax), 0),
           COALESCE(SUM(sr.pf), 0),
           COALESCE(SUM(sr.net_salary), 0)
    FROM salary_records sr
    JOIN employees e ON e.id = sr.employee_id
    LEFT JOIN departments d ON d.id = e.department_id
    WHERE sr.year = $1 AND sr.month = $2
    GROUP BY d.id, d.name
    ORDER BY COALESCE(d.name, 'Unassigned')
  `, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []DepartmentCost
	for rows.Next() {
		var cost DepartmentCost
		if err := rows.Scan(&cost.DepartmentID, &cost.DepartmentName, &cost.Employees,
			&cost.TotalSalary, &cost.Tax, &cost.PF, &cost.NetSalary); err != nil {
			return nil, err
		}
		costs = append(costs, cost)
	}
	return costs, rows.Err()
}

// AttendanceTotals buckets every logged day in the month using the same
// full/half/absent thresholds the salary computation applies.
func (s *Store) AttendanceTotals(ctx context.Context, year, month int) ([]AttendanceTotals, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.DB.Query(ctx, `
    SELECT e.id,
           COALESCE(e.employee_no, ''),
           e.first_name || ' ' || e.last_name,
           COUNT(1),
           COUNT(1) FILTER (WHERE ar.hours >= $3),
           COUNT(1) FILTER (WHERE ar.hours > 0 AND ar.hours < $3),
           COUNT(1) FILTER (WHERE ar.hours = 0),
           COALESCE(SUM(ar.hours), 0)
    FROM attendance_records ar
    JOIN employees e ON e.id = ar.employee_id
    WHERE ar.work_date >= $1 AND ar.work_date < $2
    GROUP BY e.id, e.employee_no, e.first_name, e.last_name
    ORDER BY e.first_name, e.last_name
  `, start, end, payroll.FullDayHours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []AttendanceTotals
	for rows.Next() {
		var row AttendanceTotals
		if err := rows.Scan(&row.EmployeeID, &row.EmployeeNo, &row.EmployeeName, &row.DaysLogged,
			&row.FullDays, &row.HalfDays, &row.AbsentDays, &row.TotalHours); err != nil {
			return nil, err
		}
		totals = append(totals, row)
	}
	return totals, rows.Err()
}

func (s *Store) PayslipCount(ctx context.Context, employeeID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips WHERE employee_id = $1", employeeID).Scan(&count)
	return count, err
}

func (s *Store) LastNetSalary(ctx context.Context, employeeID string) (*float64, error) {
	var net float64
	err := s.DB.QueryRow(ctx, `
    SELECT net_salary FROM salary_records
    WHERE employee_id = $1 AND status = $2
    ORDER BY year DESC, month DESC
    LIMIT 1
  `, employeeID, payroll.RecordStatusPaid).Scan(&net)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &net, nil
}

func (s *Store) DaysLoggedInMonth(ctx context.Context, employeeID string, year, month int) (int, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var days int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM attendance_records
    WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
  `, employeeID, start, end).Scan(&days)
	return days, err
}

func (s *Store) ActiveEmployeeCount(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE status = $1",
		payroll.EmployeeStatusActive).Scan(&count)
	return count, err
}

func (s *Store) MonthRecordCounts(ctx context.Context, year, month int) (draft, paid int, net float64, err error) {
	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE status = $3),
           COUNT(1) FILTER (WHERE status = $4),
           COALESCE(SUM(net_salary), 0)
    FROM salary_records
    WHERE year = $1 AND month = $2
  `, year, month, payroll.RecordStatusDraft, payroll.RecordStatusPaid).Scan(&draft, &paid, &net)
	return draft, paid, net, err
}

func (s *Store) PendingJobRuns(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM job_runs WHERE completed_at IS NULL").Scan(&count)
	return count, err
}

func (s *Store) ListJobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	query, args := jobRunsBaseQuery(filter)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) CountJobRuns(ctx context.Context, filter JobRunFilter) (int, error) {
	query, args := jobRunsBaseQuery(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM ("+query+") job_runs", args...).Scan(&total)
	return total, err
}

func (s *Store) JobRunByID(ctx context.Context, runID string) (JobRun, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, job_type, status, COALESCE(details_json, '{}'::jsonb), created_at, completed_at
    FROM job_runs
    WHERE id = $1
  `, runID)
	run, err := scanJobRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return JobRun{}, ErrRunNotFound
	}
	return run, err
}

func jobRunsBaseQuery(filter JobRunFilter) (string, []any) {
	query := `
    SELECT id, job_type, status, COALESCE(details_json, '{}'::jsonb), created_at, completed_at
    FROM job_runs
    WHERE 1=1
  `
	var args []any

	if value := strings.TrimSpace(filter.JobType); value != "" {
		query += " AND job_type = $" + strconv.Itoa(len(args)+1)
		args = append(args, value)
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		query += " AND status = $" + strconv.Itoa(len(args)+1)
		args = append(args, value)
	}
	if filter.From != nil && !filter.From.IsZero() {
		query += " AND created_at >= $" + strconv.Itoa(len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil && !filter.To.IsZero() {
		query += " AND created_at <= $" + strconv.Itoa(len(args)+1)
		args = append(args, *filter.To)
	}

	return query, args
}

func scanJobRun(row pgx.Row) (JobRun, error) {
	var run JobRun
	var detailsRaw []byte
	if err := row.Scan(&run.ID, &run.JobType, &run.Status, &detailsRaw, &run.CreatedAt, &run.CompletedAt); err != nil {
		return JobRun{}, err
	}
	run.Details = decodeDetails(detailsRaw)
	return run, nil
}

func decodeDetails(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	details := map[string]any{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}
