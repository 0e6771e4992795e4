package corehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/core"
	"paycore/internal/domain/notifications"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

const defaultWorkingDays = 22

type Handler struct {
	Service  *core.Service
	Audit    *audit.Service
	Notifier *notifications.Service
	Perms    middleware.PermissionStore
}

func NewHandler(svc *core.Service, auditSvc *audit.Service, notifier *notifications.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: svc, Audit: auditSvc, Notifier: notifier, Perms: perms}
}

type employeePayload struct {
	core.Employee
	CreateLogin       bool   `json:"createLogin"`
	TemporaryPassword string `json:"temporaryPassword"`
}

type statusPayload struct {
	Status  string `json:"status"`
	EndDate string `json:"endDate"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.Put("/", h.handleUpdateEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/status", h.handleSetEmployeeStatus)
			r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/managers", h.handleManagerHistory)
			r.Get("/emergency-contacts", h.handleListEmergencyContacts)
			r.Put("/emergency-contacts", h.handleReplaceEmergencyContacts)
		})
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/", h.handleCreateDepartment)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
	r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/org/chart", h.handleOrgChart)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	exists, err := h.Service.UserExists(r.Context(), user.UserID)
	if err != nil || !exists {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var employee *core.Employee
	if emp, err := h.Service.GetEmployeeByUserID(r.Context(), user.UserID); err == nil {
		core.FilterEmployeeFields(emp, user, true)
		employee = emp
	}

	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":     user.UserID,
			"roleId": user.RoleID,
			"role":   user.RoleName,
		},
		"employee": employee,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if user.RoleName == auth.RoleEmployee {
		emp, err := h.Service.GetEmployeeByUserID(r.Context(), user.UserID)
		if err != nil {
			w.Header().Set("X-Total-Count", "0")
			api.Success(w, []core.Employee{}, middleware.GetRequestID(r.Context()))
			return
		}
		core.FilterEmployeeFields(emp, user, true)
		w.Header().Set("X-Total-Count", "1")
		api.Success(w, []core.Employee{*emp}, middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	employees, total, err := h.Service.ListEmployees(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	var managerEmployeeID string
	if user.RoleName == auth.RoleManager {
		if id, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID); err == nil {
			managerEmployeeID = id
		}
	}

	filtered := make([]core.Employee, 0, len(employees))
	for _, emp := range employees {
		if user.RoleName == auth.RoleManager && emp.ManagerID != managerEmployeeID && emp.UserID != user.UserID {
			continue
		}
		isSelf := emp.UserID != "" && emp.UserID == user.UserID
		core.FilterEmployeeFields(&emp, user, isSelf)
		filtered = append(filtered, emp)
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, filtered, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	isSelf := emp.UserID != "" && emp.UserID == user.UserID
	isManager := false
	if user.RoleName == auth.RoleManager && !isSelf {
		if viewerID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID); err == nil {
			isManager, _ = h.Service.IsManagerOf(r.Context(), viewerID, employeeID)
		}
	}
	if user.RoleName == auth.RoleEmployee && !isSelf {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	if user.RoleName == auth.RoleManager && !isSelf && !isManager {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.InsertAccessLog(r.Context(), user.UserID, employeeID, middleware.GetRequestID(r.Context()), []string{"employee_profile"}); err != nil {
		zap.L().Warn("employee access log failed", zap.String("employeeId", employeeID), zap.Error(err))
	}

	core.FilterEmployeeFields(emp, user, isSelf)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if payload.Status == "" {
		payload.Status = core.EmployeeStatusActive
	}
	if payload.WorkingDays == 0 {
		payload.WorkingDays = defaultWorkingDays
	}
	if payload.Currency == "" {
		payload.Currency = "USD"
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	v.Required("email", payload.Email, "email is required")
	v.Required("employeeNumber", payload.EmployeeNumber, "employee number is required")
	v.Enum("status", payload.Status, []string{core.EmployeeStatusActive, core.EmployeeStatusInactive, core.EmployeeStatusTerminated}, "must be active, inactive or terminated")
	if payload.WorkingDays < 1 {
		v.Add("workingDays", "must be at least 1")
	}
	if payload.Basic != nil {
		v.NonNegative("basic", *payload.Basic)
	}
	if payload.HRA != nil {
		v.NonNegative("hra", *payload.HRA)
	}
	if payload.Allowances != nil {
		v.NonNegative("allowances", *payload.Allowances)
	}
	if payload.CreateLogin && len(payload.TemporaryPassword) < 10 {
		v.Add("temporaryPassword", "must be at least 10 characters when createLogin is set")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	var (
		id     string
		userID string
		err    error
	)
	if payload.CreateLogin {
		id, userID, err = h.Service.CreateEmployeeWithUser(r.Context(), payload.Employee, payload.TemporaryPassword)
	} else {
		id, err = h.Service.CreateEmployee(r.Context(), payload.Employee)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "employee_exists", "employee email or number already exists", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}

	if payload.ManagerID != "" {
		if err := h.Service.CreateManagerRelation(r.Context(), id, payload.ManagerID); err != nil {
			zap.L().Warn("manager relation insert failed", zap.String("employeeId", id), zap.Error(err))
		}
	}

	if userID != "" && h.Notifier != nil {
		if err := h.Notifier.Create(r.Context(), userID, notifications.TypeAccountProvisioned, "Your payroll account is ready", "Sign in with the temporary password provided by HR and change it right away."); err != nil {
			zap.L().Warn("account provisioned notification failed", zap.String("userId", userID), zap.Error(err))
		}
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.employee.create", "employee", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, auditEmployeeView(payload.Employee)); err != nil {
		zap.L().Warn("audit core.employee.create failed", zap.Error(err))
	}

	data := map[string]string{"id": id}
	if userID != "" {
		data["userId"] = userID
	}
	api.Created(w, data, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	existing, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	previousManagerID := existing.ManagerID

	var payload core.Employee
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if user.RoleName != auth.RoleHR {
		if existing.UserID == "" || existing.UserID != user.UserID {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
		// Self-service updates may only touch contact details.
		payload.EmployeeNumber = existing.EmployeeNumber
		payload.FirstName = existing.FirstName
		payload.LastName = existing.LastName
		payload.Email = existing.Email
		payload.BankAccount = existing.BankAccount
		payload.Basic = existing.Basic
		payload.HRA = existing.HRA
		payload.Allowances = existing.Allowances
		payload.WorkingDays = existing.WorkingDays
		payload.Currency = existing.Currency
		payload.EmploymentType = existing.EmploymentType
		payload.DepartmentID = existing.DepartmentID
		payload.ManagerID = existing.ManagerID
		payload.StartDate = existing.StartDate
		payload.EndDate = existing.EndDate
		payload.Status = existing.Status
	}
	if payload.WorkingDays < 1 {
		payload.WorkingDays = existing.WorkingDays
	}

	if err := h.Service.UpdateEmployee(r.Context(), employeeID, payload); err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}

	if user.RoleName == auth.RoleHR && previousManagerID != payload.ManagerID {
		if err := h.Service.CloseManagerRelations(r.Context(), employeeID); err != nil {
			zap.L().Warn("manager relation close failed", zap.String("employeeId", employeeID), zap.Error(err))
		}
		if payload.ManagerID != "" {
			if err := h.Service.CreateManagerRelation(r.Context(), employeeID, payload.ManagerID); err != nil {
				zap.L().Warn("manager relation insert failed", zap.String("employeeId", employeeID), zap.Error(err))
			}
		}
		if err := h.Audit.Record(r.Context(), user.UserID, "core.employee.manager_change", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"managerId": previousManagerID}, map[string]any{"managerId": payload.ManagerID}); err != nil {
			zap.L().Warn("audit core.employee.manager_change failed", zap.Error(err))
		}
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.employee.update", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), auditEmployeeView(*existing), auditEmployeeView(payload)); err != nil {
		zap.L().Warn("audit core.employee.update failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"id": employeeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetEmployeeStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	existing, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("status", payload.Status, "status is required")
	v.Enum("status", payload.Status, []string{core.EmployeeStatusActive, core.EmployeeStatusInactive, core.EmployeeStatusTerminated}, "must be active, inactive or terminated")
	var endDate any
	if strings.TrimSpace(payload.EndDate) != "" {
		if parsed, ok := v.Date("endDate", payload.EndDate); ok {
			endDate = parsed
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if err := h.Service.SetEmployeeStatus(r.Context(), employeeID, status, endDate); err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_status_failed", "failed to update employee status", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.employee.status_change", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"status": existing.Status}, map[string]any{"status": status, "endDate": payload.EndDate}); err != nil {
		zap.L().Warn("audit core.employee.status_change failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"id": employeeID, "status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManagerHistory(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	history, err := h.Service.ManagerHistory(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "manager_history_failed", "failed to list manager history", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmergencyContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canAccessEmergencyContacts(r, user.UserID, user.RoleName, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	contacts, err := h.Service.ListEmergencyContacts(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "contact_list_failed", "failed to list emergency contacts", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, contacts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReplaceEmergencyContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canAccessEmergencyContacts(r, user.UserID, user.RoleName, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	var contacts []core.EmergencyContact
	if err := json.NewDecoder(r.Body).Decode(&contacts); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.ReplaceEmergencyContacts(r.Context(), employeeID, contacts); err != nil {
		api.Fail(w, http.StatusInternalServerError, "contact_update_failed", "failed to update emergency contacts", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.employee.emergency_contacts_update", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"contacts": len(contacts)}); err != nil {
		zap.L().Warn("audit core.employee.emergency_contacts_update failed", zap.Error(err))
	}

	api.Success(w, map[string]int{"contacts": len(contacts)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) canAccessEmergencyContacts(r *http.Request, userID, roleName, employeeID string) bool {
	if roleName == auth.RoleHR {
		return true
	}
	ownID, err := h.Service.EmployeeIDByUserID(r.Context(), userID)
	return err == nil && ownID == employeeID
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Service.DepartmentCount(r.Context())
	if err != nil {
		zap.L().Warn("department count failed", zap.Error(err))
	}

	departments, err := h.Service.ListDepartments(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload core.Department
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateDepartment(r.Context(), payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "department_exists", "department name already exists", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.department.create", "department", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		zap.L().Warn("audit core.department.create failed", zap.Error(err))
	}

	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departmentID := chi.URLParam(r, "departmentID")
	var payload core.Department
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	found, err := h.Service.UpdateDepartment(r.Context(), departmentID, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_update_failed", "failed to update department", middleware.GetRequestID(r.Context()))
		return
	}
	if !found {
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.department.update", "department", departmentID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		zap.L().Warn("audit core.department.update failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"id": departmentID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departmentID := chi.URLParam(r, "departmentID")
	inUse, err := h.Service.DepartmentHasEmployees(r.Context(), departmentID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_delete_failed", "failed to delete department", middleware.GetRequestID(r.Context()))
		return
	}
	if inUse {
		api.Fail(w, http.StatusBadRequest, "invalid_state", "department still has employees", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.DeleteDepartment(r.Context(), departmentID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_delete_failed", "failed to delete department", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "core.department.delete", "department", departmentID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		zap.L().Warn("audit core.department.delete failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOrgChart(w http.ResponseWriter, r *http.Request) {
	root := strings.TrimSpace(r.URL.Query().Get("root"))
	nodes, err := h.Service.OrgChartNodes(r.Context(), root)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "org_chart_failed", "failed to load org chart", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, nodes, middleware.GetRequestID(r.Context()))
}

// auditEmployeeView keeps pay and bank details out of audit payloads.
func auditEmployeeView(emp core.Employee) map[string]any {
	return map[string]any{
		"employeeNumber": emp.EmployeeNumber,
		"firstName":      emp.FirstName,
		"lastName":       emp.LastName,
		"email":          emp.Email,
		"departmentId":   emp.DepartmentID,
		"managerId":      emp.ManagerID,
		"status":         emp.Status,
		"workingDays":    emp.WorkingDays,
	}
}
