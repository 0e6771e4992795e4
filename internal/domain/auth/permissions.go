package auth

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermEmployeesRead     = "core.employees.read"
	PermEmployeesWrite    = "core.employees.write"
	PermOrgRead           = "core.org.read"
	PermOrgWrite          = "core.org.write"
	PermAttendanceRead    = "attendance.read"
	PermAttendanceWrite   = "attendance.write"
	PermAttendanceManage  = "attendance.manage"
	PermPayrollRead       = "payroll.read"
	PermPayrollWrite      = "payroll.write"
	PermPayrollRun        = "payroll.run"
	PermPayrollDistribute = "payroll.distribute"
	PermReportsRead       = "reports.read"
	PermAuditRead         = "audit.read"
	PermSystemAdmin       = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermAttendanceManage,
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollRun,
	PermPayrollDistribute,
	PermReportsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermPayrollRead,
		PermReportsRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermOrgRead,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceManage,
		PermPayrollRead,
		PermReportsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceManage,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
		PermPayrollDistribute,
		PermReportsRead,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermReportsRead,
		PermSystemAdmin,
	},
}
