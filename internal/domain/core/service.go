package core

import "context"

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) UserExists(ctx context.Context, userID string) (bool, error) {
	return s.store.UserExists(ctx, userID)
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, userID)
}

func (s *Service) ListEmployees(ctx context.Context, status string, limit, offset int) ([]Employee, int, error) {
	return s.store.ListEmployees(ctx, status, limit, offset)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) CreateEmployeeWithUser(ctx context.Context, emp Employee, password string) (string, string, error) {
	return s.store.CreateEmployeeWithUser(ctx, emp, password)
}

func (s *Service) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	return s.store.UpdateEmployee(ctx, employeeID, emp)
}

func (s *Service) SetEmployeeStatus(ctx context.Context, employeeID, status string, endDate any) error {
	return s.store.SetEmployeeStatus(ctx, employeeID, status, endDate)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, userID)
}

func (s *Service) UserIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	return s.store.UserIDByEmployeeID(ctx, employeeID)
}

func (s *Service) ManagerIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	return s.store.ManagerIDByEmployeeID(ctx, employeeID)
}

func (s *Service) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	return s.store.IsManagerOf(ctx, managerEmployeeID, employeeID)
}

func (s *Service) CreateManagerRelation(ctx context.Context, employeeID, managerID string) error {
	return s.store.CreateManagerRelation(ctx, employeeID, managerID)
}

func (s *Service) CloseManagerRelations(ctx context.Context, employeeID string) error {
	return s.store.CloseManagerRelations(ctx, employeeID)
}

func (s *Service) ManagerHistory(ctx context.Context, employeeID string) ([]map[string]any, error) {
	return s.store.ManagerHistory(ctx, employeeID)
}

func (s *Service) OrgChartNodes(ctx context.Context, rootEmployeeID string) ([]map[string]any, error) {
	return s.store.OrgChartNodes(ctx, rootEmployeeID)
}

func (s *Service) DepartmentCount(ctx context.Context) (int, error) {
	return s.store.DepartmentCount(ctx)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	return s.store.ListDepartments(ctx, limit, offset)
}

func (s *Service) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	return s.store.CreateDepartment(ctx, dep)
}

func (s *Service) UpdateDepartment(ctx context.Context, departmentID string, dep Department) (bool, error) {
	return s.store.UpdateDepartment(ctx, departmentID, dep)
}

func (s *Service) DepartmentHasEmployees(ctx context.Context, departmentID string) (bool, error) {
	return s.store.DepartmentHasEmployees(ctx, departmentID)
}

func (s *Service) DeleteDepartment(ctx context.Context, departmentID string) error {
	return s.store.DeleteDepartment(ctx, departmentID)
}

func (s *Service) ListPermissions(ctx context.Context) ([]map[string]string, error) {
	return s.store.ListPermissions(ctx)
}

func (s *Service) ListRoles(ctx context.Context) ([]map[string]any, error) {
	return s.store.ListRoles(ctx)
}

func (s *Service) UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	return s.store.UpdateRolePermissions(ctx, roleID, permissions)
}

func (s *Service) ListEmergencyContacts(ctx context.Context, employeeID string) ([]EmergencyContact, error) {
	return s.store.ListEmergencyContacts(ctx, employeeID)
}

func (s *Service) ReplaceEmergencyContacts(ctx context.Context, employeeID string, contacts []EmergencyContact) error {
	return s.store.ReplaceEmergencyContacts(ctx, employeeID, contacts)
}

func (s *Service) InsertAccessLog(ctx context.Context, actorID, employeeID, requestID string, fields []string) error {
	return s.store.InsertAccessLog(ctx, actorID, employeeID, requestID, fields)
}
