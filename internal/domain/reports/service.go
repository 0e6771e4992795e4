package reports

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidPeriod = errors.New("month must be 1-12 and year a four digit year")

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	return s.Store.EmployeeIDByUserID(ctx, userID)
}

func (s *Service) MonthlyCosts(ctx context.Context, year int) ([]MonthlyCost, error) {
	if year < 1000 || year > 9999 {
		return nil, ErrInvalidPeriod
	}
	return s.Store.MonthlyCosts(ctx, year)
}

func (s *Service) DepartmentCosts(ctx context.Context, year, month int) ([]DepartmentCost, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.Store.DepartmentCosts(ctx, year, month)
}

func (s *Service) AttendanceTotals(ctx context.Context, year, month int) ([]AttendanceTotals, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.Store.AttendanceTotals(ctx, year, month)
}

// EmployeeDashboard assembles the self-service landing numbers. A missing
// employee record yields zero counters rather than an error so fresh users
// still get a dashboard.
func (s *Service) EmployeeDashboard(ctx context.Context, userID string, now time.Time) (EmployeeDashboard, error) {
	employeeID, err := s.Store.EmployeeIDByUserID(ctx, userID)
	if err != nil {
		return EmployeeDashboard{}, err
	}
	if employeeID == "" {
		return EmployeeDashboard{}, nil
	}

	dashboard := EmployeeDashboard{}
	if dashboard.PayslipCount, err = s.Store.PayslipCount(ctx, employeeID); err != nil {
		return EmployeeDashboard{}, err
	}
	if dashboard.LastNetSalary, err = s.Store.LastNetSalary(ctx, employeeID); err != nil {
		return EmployeeDashboard{}, err
	}
	if dashboard.DaysLoggedInMonth, err = s.Store.DaysLoggedInMonth(ctx, employeeID, now.Year(), int(now.Month())); err != nil {
		return EmployeeDashboard{}, err
	}
	return dashboard, nil
}

func (s *Service) OperatorDashboard(ctx context.Context, now time.Time) (OperatorDashboard, error) {
	dashboard := OperatorDashboard{}
	var err error
	if dashboard.ActiveEmployees, err = s.Store.ActiveEmployeeCount(ctx); err != nil {
		return OperatorDashboard{}, err
	}
	if dashboard.DraftRecords, dashboard.PaidRecords, dashboard.MonthNetSalary, err = s.Store.MonthRecordCounts(ctx, now.Year(), int(now.Month())); err != nil {
		return OperatorDashboard{}, err
	}
	if dashboard.PendingJobRuns, err = s.Store.PendingJobRuns(ctx); err != nil {
		return OperatorDashboard{}, err
	}
	return dashboard, nil
}

func (s *Service) JobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	total, err := s.Store.CountJobRuns(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.Store.ListJobRuns(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) JobRun(ctx context.Context, runID string) (JobRun, error) {
	return s.Store.JobRunByID(ctx, runID)
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return ErrInvalidPeriod
	}
	return nil
}
