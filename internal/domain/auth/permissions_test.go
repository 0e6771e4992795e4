package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestRoleBoundaries(t *testing.T) {
	has := func(role, perm string) bool {
		for _, p := range RolePermissions[role] {
			if p == perm {
				return true
			}
		}
		return false
	}

	// Employees and managers read their own payroll but never run it.
	if !has(RoleEmployee, PermPayrollRead) {
		t.Fatal("employee must read own payslips")
	}
	if has(RoleEmployee, PermPayrollRun) || has(RoleManager, PermPayrollRun) {
		t.Fatal("only hr runs payroll")
	}
	if has(RoleEmployee, PermAttendanceManage) {
		t.Fatal("employees may not correct attendance")
	}
	if !has(RoleManager, PermAttendanceManage) {
		t.Fatal("managers correct their reports' attendance")
	}
	if !has(RoleHR, PermPayrollDistribute) {
		t.Fatal("hr distributes payroll")
	}
	if has(RoleHR, PermSystemAdmin) {
		t.Fatal("hr must not hold the system admin permission")
	}
	if !has(RoleSystemAdmin, PermSystemAdmin) {
		t.Fatal("system admin role must hold admin.system")
	}
	if !has(RoleSystemAdmin, PermReportsRead) {
		t.Fatal("system admin monitors job runs through reports")
	}
}
