package payroll

const (
	// FullDayHours is the attendance threshold for a full working day.
	// Anything above zero but below it counts as a half day.
	FullDayHours = 8.0

	// PFRate is the provident fund contribution, applied to basic pay only.
	PFRate = 0.12

	MonthsPerYear = 12
)

const (
	RecordStatusDraft = "draft"
	RecordStatusPaid  = "paid"

	MonthStatusEmpty = "empty"
	MonthStatusDraft = "draft"
	MonthStatusPaid  = "paid"

	WarningMissingBank  = "missing_bank_account"
	WarningNegativeNet  = "negative_net"
	WarningNoAttendance = "no_attendance"
)

// EmployeeStatusActive is the only employee status payroll runs include.
const EmployeeStatusActive = "active"
