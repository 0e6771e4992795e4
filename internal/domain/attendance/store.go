package attendance

import (
	"context"
	"errors"
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

func (s *Store) UpsertRecord(ctx context.Context, employeeID string, date time.Time, hours float64, note, source, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance_records (employee_id, work_date, hours, note, source, created_by)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (employee_id, work_date)
    DO UPDATE SET
      hours = EXCLUDED.hours,
      note = EXCLUDED.note,
      source = EXCLUDED.source,
      updated_at = now()
    RETURNING id
  `, employeeID, date, hours, note, source, nullIfEmpty(createdBy)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const recordColumns = `
    id, employee_id, work_date, hours, COALESCE(note, ''), source,
    COALESCE(created_by::text, ''), created_at, updated_at
`

func scanRecord(row pgx.Row) (Record, error) {
	var record Record
	err := row.Scan(&record.ID, &record.EmployeeID, &record.Date, &record.Hours, &record.Note,
		&record.Source, &record.CreatedBy, &record.CreatedAt, &record.UpdatedAt)
	return record, err
}

func (s *Store) RecordsForEmployee(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM attendance_records
    WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
  `, employeeID, from, to).Scan(&total); err != nil {
		total = 0
	}

	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
    ORDER BY work_date DESC
    LIMIT $4 OFFSET $5
  `, employeeID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}

func (s *Store) RecordsForMonth(ctx context.Context, employeeID string, year, month int) ([]Record, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE employee_id = $1 AND work_date >= $2 AND work_date < $3
    ORDER BY work_date
  `, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) RecordByID(ctx context.Context, recordID string) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE id = $1
  `, recordID)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

func (s *Store) RecordIDForDay(ctx context.Context, employeeID string, day time.Time) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM attendance_records
    WHERE employee_id = $1 AND work_date = $2
  `, employeeID, day).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) DeleteRecord(ctx context.Context, recordID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM attendance_records WHERE id = $1", recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)", employeeID).Scan(&exists)
	return exists, err
}

func (s *Store) EmployeeIDByNumber(ctx context.Context, employeeNo string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE employee_no = $1", employeeNo).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownEmployee
	}
	return id, err
}

func (s *Store) EmployeeIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE lower(email) = lower($1)", email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownEmployee
	}
	return id, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
