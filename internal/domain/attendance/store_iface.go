package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	UpsertRecord(ctx context.Context, employeeID string, date time.Time, hours float64, note, source, createdBy string) (string, error)
	RecordsForEmployee(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error)
	RecordsForMonth(ctx context.Context, employeeID string, year, month int) ([]Record, error)
	RecordIDForDay(ctx context.Context, employeeID string, day time.Time) (string, error)
	DeleteRecord(ctx context.Context, recordID string) error
	RecordByID(ctx context.Context, recordID string) (Record, error)
	EmployeeExists(ctx context.Context, employeeID string) (bool, error)
	EmployeeIDByNumber(ctx context.Context, employeeNo string) (string, error)
	EmployeeIDByEmail(ctx context.Context, email string) (string, error)
}
