package core

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/auth"
	cryptoutil "paycore/internal/platform/crypto"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM users
    WHERE id = $1
  `, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const employeeColumns = `
    id,
    COALESCE(user_id::text, ''),
    COALESCE(employee_no, ''),
    first_name, last_name, email,
    COALESCE(phone, ''),
    COALESCE(address, ''),
    COALESCE(bank_account, ''),
    bank_account_enc,
    basic_salary, hra, allowances, working_days,
    currency,
    COALESCE(employment_type, ''),
    COALESCE(department_id::text, ''),
    COALESCE(manager_id::text, ''),
    start_date, end_date, status, created_at, updated_at
`

func (s *Store) scanEmployee(row interface{ Scan(...any) error }) (*Employee, error) {
	var emp Employee
	var bankEnc []byte
	var bankPlain string
	var basic, hra, allowances float64
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone,
		&emp.Address, &bankPlain, &bankEnc, &basic, &hra, &allowances, &emp.WorkingDays,
		&emp.Currency, &emp.EmploymentType, &emp.DepartmentID, &emp.ManagerID,
		&emp.StartDate, &emp.EndDate, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.BankAccount = decryptStringFallback(s.Crypto, bankEnc, bankPlain)
	emp.Basic = &basic
	emp.HRA = &hra
	emp.Allowances = &allowances
	return &emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, employeeID)
	return s.scanEmployee(row)
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE user_id = $1
  `, userID)
	return s.scanEmployee(row)
}

func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE id = $1 AND manager_id = $2
  `, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListEmployees(ctx context.Context, status string, limit, offset int) ([]Employee, int, error) {
	countQuery := "SELECT COUNT(1) FROM employees"
	query := `
    SELECT ` + employeeColumns + `
    FROM employees
  `
	var args []any
	if status != "" {
		countQuery += " WHERE status = $1"
		query += " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		total = 0
	}

	query += " ORDER BY last_name, first_name LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *emp)
	}
	return out, total, rows.Err()
}

func (s *Store) employeeWriteValues(emp Employee) (bankPlain any, bankEnc []byte, basic, hra, allowances float64) {
	bankPlain = nullIfEmpty(emp.BankAccount)
	if s.Crypto != nil && s.Crypto.Configured() {
		bankEnc, _ = s.Crypto.EncryptString(emp.BankAccount)
		bankPlain = nil
	}
	if emp.Basic != nil {
		basic = *emp.Basic
	}
	if emp.HRA != nil {
		hra = *emp.HRA
	}
	if emp.Allowances != nil {
		allowances = *emp.Allowances
	}
	return bankPlain, bankEnc, basic, hra, allowances
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	bankPlain, bankEnc, basic, hra, allowances := s.employeeWriteValues(emp)
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_no, first_name, last_name, email, phone, address,
      bank_account, bank_account_enc, basic_salary, hra, allowances, working_days, currency,
      employment_type, department_id, manager_id, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    RETURNING id
  `,
		nullIfEmpty(emp.UserID), emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.Address, bankPlain, bankEnc, basic, hra, allowances, emp.WorkingDays, emp.Currency,
		emp.EmploymentType, nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateEmployeeWithUser provisions a login alongside the employee row in
// one transaction, so a failed employee insert never leaves an orphan user.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, emp Employee, password string) (string, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", "", err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback(ctx)

	var userID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, status)
    SELECT $1, $2, id, 'active' FROM roles WHERE name = $3
    RETURNING id
  `, emp.Email, hash, auth.RoleEmployee).Scan(&userID); err != nil {
		return "", "", err
	}

	bankPlain, bankEnc, basic, hra, allowances := s.employeeWriteValues(emp)
	var employeeID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_no, first_name, last_name, email, phone, address,
      bank_account, bank_account_enc, basic_salary, hra, allowances, working_days, currency,
      employment_type, department_id, manager_id, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    RETURNING id
  `,
		userID, emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.Address, bankPlain, bankEnc, basic, hra, allowances, emp.WorkingDays, emp.Currency,
		emp.EmploymentType, nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status,
	).Scan(&employeeID); err != nil {
		return "", "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}
	return employeeID, userID, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	bankPlain, bankEnc, basic, hra, allowances := s.employeeWriteValues(emp)
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_no = $1,
        first_name = $2,
        last_name = $3,
        email = $4,
        phone = $5,
        address = $6,
        bank_account = $7,
        bank_account_enc = $8,
        basic_salary = $9,
        hra = $10,
        allowances = $11,
        working_days = $12,
        currency = $13,
        employment_type = $14,
        department_id = $15,
        manager_id = $16,
        start_date = $17,
        end_date = $18,
        status = $19,
        updated_at = now()
    WHERE id = $20
  `,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Address,
		bankPlain, bankEnc, basic, hra, allowances, emp.WorkingDays, emp.Currency, emp.EmploymentType,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status, employeeID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SetEmployeeStatus(ctx context.Context, employeeID, status string, endDate any) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET status = $1, end_date = COALESCE($2, end_date), updated_at = now()
    WHERE id = $3
  `, status, endDate, employeeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&employeeID)
	return employeeID, err
}

func (s *Store) UserIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&userID)
	return userID, err
}

func (s *Store) ManagerIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	var managerID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(manager_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&managerID)
	return managerID, err
}

func (s *Store) CreateManagerRelation(ctx context.Context, employeeID, managerID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employee_managers (employee_id, manager_id, started_at)
    VALUES ($1,$2, now())
  `, employeeID, managerID)
	return err
}

func (s *Store) CloseManagerRelations(ctx context.Context, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE employee_managers
    SET ended_at = now()
    WHERE employee_id = $1 AND ended_at IS NULL
  `, employeeID)
	return err
}

func (s *Store) ManagerHistory(ctx context.Context, employeeID string) ([]map[string]any, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT m.manager_id, e.first_name, e.last_name, m.started_at, m.ended_at
    FROM employee_managers m
    JOIN employees e ON m.manager_id = e.id
    WHERE m.employee_id = $1
    ORDER BY m.started_at DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var managerID, first, last string
		var startedAt any
		var endedAt any
		if err := rows.Scan(&managerID, &first, &last, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"managerId": managerID,
			"name":      first + " " + last,
			"startedAt": startedAt,
			"endedAt":   endedAt,
		})
	}
	return out, rows.Err()
}

func (s *Store) OrgChartNodes(ctx context.Context, rootEmployeeID string) ([]map[string]any, error) {
	query := `
    SELECT id, first_name, last_name, COALESCE(manager_id::text, ''), COALESCE(department_id::text, '')
    FROM employees
    WHERE status = $1
  `
	args := []any{EmployeeStatusActive}
	if rootEmployeeID != "" {
		query += " AND (id = $2 OR manager_id = $2)"
		args = append(args, rootEmployeeID)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var id, first, last, managerID, departmentID string
		if err := rows.Scan(&id, &first, &last, &managerID, &departmentID); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"id":           id,
			"name":         first + " " + last,
			"managerId":    managerID,
			"departmentId": departmentID,
		})
	}
	return out, rows.Err()
}

func (s *Store) DepartmentCount(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM departments").Scan(&count)
	return count, err
}

func (s *Store) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(parent_id::text, ''), COALESCE(manager_id::text, ''), created_at
    FROM departments
    ORDER BY name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.ManagerID, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, parent_id, manager_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, dep.Name, nullIfEmpty(dep.ParentID), nullIfEmpty(dep.ManagerID)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, departmentID string, dep Department) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE departments
    SET name = $1, parent_id = $2, manager_id = $3
    WHERE id = $4
  `, dep.Name, nullIfEmpty(dep.ParentID), nullIfEmpty(dep.ManagerID), departmentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DepartmentHasEmployees(ctx context.Context, departmentID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE department_id = $1
  `, departmentID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteDepartment(ctx context.Context, departmentID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", departmentID)
	return err
}

func (s *Store) ListPermissions(ctx context.Context) ([]map[string]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT key, COALESCE(description, '') FROM permissions ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var key, description string
		if err := rows.Scan(&key, &description); err != nil {
			return nil, err
		}
		out = append(out, map[string]string{"key": key, "description": description})
	}
	return out, rows.Err()
}

func (s *Store) ListRoles(ctx context.Context) ([]map[string]any, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.name, COALESCE(array_agg(p.key) FILTER (WHERE p.key IS NOT NULL), '{}')
    FROM roles r
    LEFT JOIN role_permissions rp ON rp.role_id = r.id
    LEFT JOIN permissions p ON p.id = rp.permission_id
    GROUP BY r.id, r.name
    ORDER BY r.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var id, name string
		var permissions []string
		if err := rows.Scan(&id, &name, &permissions); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{"id": id, "name": name, "permissions": permissions})
	}
	return out, rows.Err()
}

func (s *Store) UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID); err != nil {
		return err
	}
	for _, key := range permissions {
		if _, err := tx.Exec(ctx, `
      INSERT INTO role_permissions (role_id, permission_id)
      SELECT $1, id FROM permissions WHERE key = $2
      ON CONFLICT DO NOTHING
    `, roleID, key); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertAccessLog records which sensitive employee fields were served to
// whom. Writing the trail must never fail the read it describes, so the
// caller ignores the returned error at most call sites.
func (s *Store) InsertAccessLog(ctx context.Context, actorID, employeeID, requestID string, fields []string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employee_access_log (actor_id, employee_id, request_id, fields)
    VALUES ($1,$2,$3,$4)
  `, nullIfEmpty(actorID), employeeID, nullIfEmpty(requestID), fields)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

func decryptStringFallback(crypto *cryptoutil.Service, encrypted []byte, plain string) string {
	if crypto == nil || !crypto.Configured() || len(encrypted) == 0 {
		return plain
	}
	decrypted, err := crypto.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	return decrypted
}
