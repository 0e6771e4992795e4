package core

import "time"

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusInactive   = "inactive"
	EmployeeStatusTerminated = "terminated"
)

// Employee carries the payable compensation structure next to the usual
// directory fields. Compensation and bank details are redacted for
// viewers without the HR role, hence the pointer money fields.
type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	BankAccount    string     `json:"bankAccount,omitempty"`
	Basic          *float64   `json:"basic,omitempty"`
	HRA            *float64   `json:"hra,omitempty"`
	Allowances     *float64   `json:"allowances,omitempty"`
	WorkingDays    int        `json:"workingDays"`
	Currency       string     `json:"currency"`
	EmploymentType string     `json:"employmentType"`
	DepartmentID   string     `json:"departmentId"`
	ManagerID      string     `json:"managerId"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}

type EmergencyContact struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	FullName     string    `json:"fullName"`
	Relationship string    `json:"relationship"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	IsPrimary    bool      `json:"isPrimary"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
