package attendance

import "errors"

var (
	ErrInvalidHours    = errors.New("hours must be between 0 and 24")
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrUnknownEmployee = errors.New("employee not found")
)
