package core

import "paycore/internal/domain/auth"

// FilterEmployeeFields strips compensation and bank details from an
// employee record according to who is looking. HR sees everything, an
// employee sees their own pay structure but never the stored account
// number, everyone else gets the directory fields only.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if user.RoleName == auth.RoleHR {
		return
	}

	emp.BankAccount = ""
	if isSelf {
		return
	}

	emp.Basic = nil
	emp.HRA = nil
	emp.Allowances = nil
}
