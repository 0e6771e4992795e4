package payroll

import "errors"

var (
	ErrInvalidWorkingDays  = errors.New("working days in period must be at least 1")
	ErrRecordNotFound      = errors.New("salary record not found")
	ErrEmployeeInactive    = errors.New("employee is not active")
	ErrMonthDistributed    = errors.New("payroll month is already distributed")
	ErrMonthNotDistributed = errors.New("payroll month has not been distributed")
	ErrNoRecords           = errors.New("payroll month has no salary records")
)
