package notifications

const (
	TypePayslipPublished    = "payslip_published"
	TypePayrollReopened     = "payroll_reopened"
	TypeAttendanceCorrected = "attendance_corrected"
	TypeDeductionAdded      = "deduction_added"
	TypeAccountProvisioned  = "account_provisioned"
)
