package reportshandler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/reports"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard/employee", h.handleEmployeeDashboard)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard/operator", h.handleOperatorDashboard)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/payroll-cost", h.handleMonthlyCosts)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/payroll-cost/departments", h.handleDepartmentCosts)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/attendance", h.handleAttendanceTotals)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/job-runs", h.handleListJobRuns)
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/job-runs/{runID}", h.handleJobRun)
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	dashboard, err := h.Service.EmployeeDashboard(r.Context(), user.UserID, time.Now().UTC())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOperatorDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	dashboard, err := h.Service.OperatorDashboard(r.Context(), time.Now().UTC())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMonthlyCosts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "year query parameter is required", middleware.GetRequestID(r.Context()))
		return
	}

	costs, err := h.Service.MonthlyCosts(r.Context(), year)
	if err != nil {
		failReport(w, r, err)
		return
	}
	if costs == nil {
		costs = []reports.MonthlyCost{}
	}
	api.Success(w, costs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDepartmentCosts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := queryPeriod(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "year and month query parameters are required", middleware.GetRequestID(r.Context()))
		return
	}

	costs, err := h.Service.DepartmentCosts(r.Context(), year, month)
	if err != nil {
		failReport(w, r, err)
		return
	}
	if costs == nil {
		costs = []reports.DepartmentCost{}
	}
	api.Success(w, costs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAttendanceTotals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if user.RoleName != auth.RoleManager && !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "manager or hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := queryPeriod(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "year and month query parameters are required", middleware.GetRequestID(r.Context()))
		return
	}

	totals, err := h.Service.AttendanceTotals(r.Context(), year, month)
	if err != nil {
		failReport(w, r, err)
		return
	}
	if totals == nil {
		totals = []reports.AttendanceTotals{}
	}
	api.Success(w, totals, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := reports.JobRunFilter{
		JobType: r.URL.Query().Get("jobType"),
		Status:  r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "from must be a valid date", middleware.GetRequestID(r.Context()))
			return
		}
		filter.From = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "to must be a valid date", middleware.GetRequestID(r.Context()))
			return
		}
		filter.To = &parsed
	}

	page := shared.ParsePagination(r, 50, 200)
	runs, total, err := h.Service.JobRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	if runs == nil {
		runs = []reports.JobRun{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isReportOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "runID must be a UUID", middleware.GetRequestID(r.Context()))
		return
	}

	run, err := h.Service.JobRun(r.Context(), runID)
	if errors.Is(err, reports.ErrRunNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "job run not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load job run", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func failReport(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, reports.ErrInvalidPeriod) {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", middleware.GetRequestID(r.Context()))
}

func isReportOperator(user auth.UserContext) bool {
	return user.RoleName == auth.RoleHR || user.RoleName == auth.RoleSystemAdmin
}

func queryPeriod(r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return 0, 0, false
	}
	return year, month, true
}
