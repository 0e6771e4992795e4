package core

import (
	"testing"

	"paycore/internal/domain/auth"
)

func sampleEmployee() *Employee {
	basic := 50000.0
	hra := 10000.0
	allowances := 5000.0
	return &Employee{
		BankAccount: "BANK123",
		Basic:       &basic,
		HRA:         &hra,
		Allowances:  &allowances,
	}
}

func TestFilterEmployeeFieldsHR(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleHR}

	FilterEmployeeFields(emp, user, false)

	if emp.BankAccount == "" || emp.Basic == nil || emp.HRA == nil || emp.Allowances == nil {
		t.Fatal("HR should retain sensitive fields")
	}
}

func TestFilterEmployeeFieldsManager(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleManager}

	FilterEmployeeFields(emp, user, false)

	if emp.BankAccount != "" || emp.Basic != nil || emp.HRA != nil || emp.Allowances != nil {
		t.Fatal("Manager should not see sensitive fields")
	}
}

func TestFilterEmployeeFieldsEmployeeSelf(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleEmployee}

	FilterEmployeeFields(emp, user, true)

	if emp.BankAccount != "" {
		t.Fatal("stored account number should never be echoed back")
	}
	if emp.Basic == nil || emp.HRA == nil || emp.Allowances == nil {
		t.Fatal("employees should see their own pay structure")
	}
}

func TestFilterEmployeeFieldsEmployeeOther(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{RoleName: auth.RoleEmployee}

	FilterEmployeeFields(emp, user, false)

	if emp.BankAccount != "" || emp.Basic != nil {
		t.Fatal("employees should not see colleague compensation")
	}
}
