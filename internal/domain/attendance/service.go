package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"paycore/internal/domain/payroll"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// normalizeDate drops the time-of-day component so a day is stored once
// regardless of the timestamp the caller sent.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) RecordHours(ctx context.Context, employeeID string, date time.Time, hours float64, note, source, createdBy string) (Record, error) {
	if hours < 0 || hours > 24 {
		return Record{}, ErrInvalidHours
	}
	exists, err := s.store.EmployeeExists(ctx, employeeID)
	if err != nil {
		return Record{}, err
	}
	if !exists {
		return Record{}, ErrUnknownEmployee
	}

	day := normalizeDate(date)
	id, err := s.store.UpsertRecord(ctx, employeeID, day, hours, note, source, createdBy)
	if err != nil {
		return Record{}, err
	}
	return s.store.RecordByID(ctx, id)
}

func (s *Service) List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error) {
	return s.store.RecordsForEmployee(ctx, employeeID, from, to, limit, offset)
}

// RecordExists reports whether the employee already has an entry for the day.
func (s *Service) RecordExists(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	id, err := s.store.RecordIDForDay(ctx, employeeID, normalizeDate(date))
	if err != nil {
		return false, err
	}
	return id != "", nil
}

func (s *Service) Delete(ctx context.Context, recordID string) error {
	return s.store.DeleteRecord(ctx, recordID)
}

func (s *Service) RecordByID(ctx context.Context, recordID string) (Record, error) {
	return s.store.RecordByID(ctx, recordID)
}

// Summary classifies a month of records with the payroll day rules, so
// what attendance reports is exactly what a salary run will count.
func (s *Service) Summary(ctx context.Context, employeeID string, year, month int) (MonthlySummary, error) {
	records, err := s.store.RecordsForMonth(ctx, employeeID, year, month)
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{
		EmployeeID:      employeeID,
		Month:           month,
		Year:            year,
		DaysRecorded:    len(records),
		WorkingWeekdays: WorkingWeekdays(year, month),
	}
	for _, record := range records {
		summary.TotalHours += record.Hours
		switch payroll.ClassifyDay(record.Hours) {
		case payroll.DayFull:
			summary.FullDays++
		case payroll.DayHalf:
			summary.HalfDays++
		default:
			summary.AbsentDays++
		}
	}
	return summary, nil
}

// WorkingWeekdays counts Monday through Friday occurrences in the month.
// It is a suggestion for the run's working day count, not a mandate.
func WorkingWeekdays(year, month int) int {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	count := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// ImportCSV loads attendance rows from a CSV payload. Expected columns:
// one of employee_id, employee_no or employee_email to resolve the
// employee, plus date (YYYY-MM-DD), hours and an optional note. Rows
// that fail to resolve or parse are skipped and reported, never fatal.
func (s *Service) ImportCSV(ctx context.Context, payload []byte, createdBy string) (ImportResult, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	index := map[string]int{}
	for i, header := range headers {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	get := func(row []string, key string) string {
		if idx, ok := index[key]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	result := ImportResult{}
	line := 1
	skip := func(reason string) {
		result.Skipped++
		result.Issues = append(result.Issues, ImportIssue{Line: line, Reason: reason})
	}

	for {
		line++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skip("malformed row")
			continue
		}

		employeeID, err := s.resolveEmployee(ctx, get(row, "employee_id"), get(row, "employee_no"), get(row, "employee_email"))
		if err != nil {
			skip("unknown employee")
			continue
		}

		date, err := time.Parse("2006-01-02", get(row, "date"))
		if err != nil {
			skip("invalid date")
			continue
		}
		hours, err := strconv.ParseFloat(get(row, "hours"), 64)
		if err != nil {
			skip("invalid hours")
			continue
		}
		if hours < 0 || hours > 24 {
			skip("hours out of range")
			continue
		}

		if _, err := s.store.UpsertRecord(ctx, employeeID, normalizeDate(date), hours, get(row, "note"), SourceImport, createdBy); err != nil {
			skip("store failed")
			continue
		}
		result.Imported++
	}
	return result, nil
}

func (s *Service) resolveEmployee(ctx context.Context, id, number, email string) (string, error) {
	if id != "" {
		exists, err := s.store.EmployeeExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", ErrUnknownEmployee
		}
		return id, nil
	}
	if number != "" {
		return s.store.EmployeeIDByNumber(ctx, number)
	}
	if email != "" {
		return s.store.EmployeeIDByEmail(ctx, email)
	}
	return "", ErrUnknownEmployee
}
