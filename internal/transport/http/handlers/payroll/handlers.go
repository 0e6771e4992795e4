package payrollhandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/notifications"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/jobs"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service     *payroll.Service
	Audit       *audit.Service
	Notifier    *notifications.Service
	Perms       middleware.PermissionStore
	Jobs        *jobs.Service
	Metrics     *metrics.Collector
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(svc *payroll.Service, auditSvc *audit.Service, notifier *notifications.Service, perms middleware.PermissionStore, jobSvc *jobs.Service, collector *metrics.Collector, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: svc, Audit: auditSvc, Notifier: notifier, Perms: perms, Jobs: jobSvc, Metrics: collector, Idempotency: idem}
}

type runPayload struct {
	Month       int `json:"month"`
	Year        int `json:"year"`
	WorkingDays int `json:"workingDays"`
}

type reopenPayload struct {
	Reason string `json:"reason"`
}

type deductionPayload struct {
	EmployeeID  string  `json:"employeeId"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/runs", h.handleRun)
	r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/employees/{employeeID}/preview", h.handlePreview)
	r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/employees/{employeeID}/record", h.handleEmployeeRecord)
	r.Route("/{year}/{month}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollDistribute, h.Perms)).Post("/distribute", h.handleDistribute)
		r.With(middleware.RequirePermission(auth.PermPayrollDistribute, h.Perms)).Post("/reopen", h.handleReopen)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/export/register", h.handleExportRegister)
	})
	r.Route("/deductions", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/", h.handleCreateDeduction)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/", h.handleListDeductions)
	})
	r.Route("/payslips", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/{payslipID}/download", h.handleDownloadPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollDistribute, h.Perms)).Post("/{payslipID}/regenerate", h.handleRegeneratePayslip)
	})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Month("month", payload.Month)
	v.Year("year", payload.Year)
	if payload.WorkingDays < 0 {
		v.Add("workingDays", "must be at least 1 when provided")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.Run(r.Context(), payload.Year, payload.Month, payload.WorkingDays)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrMonthDistributed):
			api.Fail(w, http.StatusBadRequest, "invalid_state", "payroll month is already distributed", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrInvalidWorkingDays):
			api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payroll_run_failed", "failed to run payroll", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if h.Metrics != nil {
		h.Metrics.IncPayrollRun()
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "payroll.run", "payroll_month", monthKey(payload.Year, payload.Month), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		zap.L().Warn("payroll audit failed", zap.Error(err))
	}

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployeePayroll(r, user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions for this employee", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := queryMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}
	workingDays := 0
	if raw := r.URL.Query().Get("workingDays"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			api.Fail(w, http.StatusBadRequest, "validation_error", "workingDays must be at least 1", middleware.GetRequestID(r.Context()))
			return
		}
		workingDays = v
	}

	record, err := h.Service.Preview(r.Context(), employeeID, year, month, workingDays)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrEmployeeInactive):
			api.Fail(w, http.StatusBadRequest, "invalid_state", "employee is not active", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrInvalidWorkingDays):
			api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "preview_failed", "failed to preview salary", middleware.GetRequestID(r.Context()))
		}
		return
	}

	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

// handleEmployeeRecord returns the persisted ledger row for one employee and
// month: what a run actually computed, as opposed to preview's ad-hoc
// recalculation.
func (h *Handler) handleEmployeeRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployeePayroll(r, user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions for this employee", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := queryMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	record, err := h.Service.RecordForEmployee(r.Context(), employeeID, year, month)
	if err != nil {
		if errors.Is(err, payroll.ErrRecordNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no salary record for this month", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payroll_record_failed", "failed to load salary record", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := pathMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	idemPayload := []byte(monthKey(year, month))
	key, handled := middleware.CheckIdempotency(w, r, h.Idempotency, "payroll.distribute", idemPayload)
	if handled {
		return
	}

	result, keys, err := h.Service.Distribute(r.Context(), year, month)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrNoRecords):
			api.Fail(w, http.StatusBadRequest, "invalid_state", "payroll month has no salary records", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrMonthDistributed):
			api.Fail(w, http.StatusBadRequest, "invalid_state", "payroll month is already distributed", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payroll_distribute_failed", "failed to distribute payroll", middleware.GetRequestID(r.Context()))
		}
		return
	}

	for _, slip := range keys {
		payslipID := slip.ID
		if h.Jobs != nil {
			h.Jobs.Enqueue(jobs.JobPayslipRender, func(ctx context.Context) (any, error) {
				path, err := h.Service.GeneratePayslipPDF(ctx, payslipID)
				if err != nil {
					return nil, err
				}
				if h.Metrics != nil {
					h.Metrics.IncPayslipRendered()
				}
				return map[string]string{"payslipId": payslipID, "path": path}, nil
			})
		}
		if h.Notifier != nil && slip.UserID != "" {
			if err := h.Notifier.Create(r.Context(), slip.UserID, notifications.TypePayslipPublished, "Payslip published", "A new payslip is available for download."); err != nil {
				zap.L().Warn("payslip notification failed", zap.Error(err))
			}
		}
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payroll.distribute", "payroll_month", monthKey(year, month), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		zap.L().Warn("payroll audit failed", zap.Error(err))
	}

	middleware.SaveIdempotency(r.Context(), h.Idempotency, "payroll.distribute", key, idemPayload, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := pathMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	var payload reopenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.Reason) == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "reason is required", middleware.GetRequestID(r.Context()))
		return
	}

	reverted, err := h.Service.Reopen(r.Context(), year, month)
	if err != nil {
		if errors.Is(err, payroll.ErrMonthNotDistributed) {
			api.Fail(w, http.StatusBadRequest, "invalid_state", "payroll month has not been distributed", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payroll_reopen_failed", "failed to reopen payroll", middleware.GetRequestID(r.Context()))
		return
	}

	h.notifyReopen(r.Context(), year, month)

	after := map[string]any{"reason": payload.Reason, "recordsReverted": reverted}
	if err := h.Audit.Record(r.Context(), user.UserID, "payroll.reopen", "payroll_month", monthKey(year, month), middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"status": payroll.MonthStatusPaid}, after); err != nil {
		zap.L().Warn("payroll audit failed", zap.Error(err))
	}

	api.Success(w, map[string]any{"status": payroll.MonthStatusDraft, "recordsReverted": reverted}, middleware.GetRequestID(r.Context()))
}

// notifyReopen tells every employee in the month's ledger that the payroll
// was pulled back. Best effort only.
func (h *Handler) notifyReopen(ctx context.Context, year, month int) {
	if h.Notifier == nil {
		return
	}
	rows, err := h.Service.Register(ctx, year, month)
	if err != nil {
		zap.L().Warn("payroll reopen register lookup failed", zap.Error(err))
		return
	}
	body := fmt.Sprintf("Payroll for %s was reopened for corrections. Published payslips were withdrawn.", monthKey(year, month))
	for _, row := range rows {
		userID, err := h.Service.EmployeeUserID(ctx, row.EmployeeID)
		if err != nil || userID == "" {
			continue
		}
		if err := h.Notifier.Create(ctx, userID, notifications.TypePayrollReopened, "Payroll reopened", body); err != nil {
			zap.L().Warn("payroll reopen notification failed", zap.Error(err))
		}
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isPayrollOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := pathMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Service.Summary(r.Context(), year, month)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to summarise payroll", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isPayrollOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := pathMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	p := shared.ParsePagination(r, 50, 200)
	records, total, err := h.Service.ListRecords(r.Context(), year, month, p.Limit, p.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payroll_list_failed", "failed to list salary records", middleware.GetRequestID(r.Context()))
		return
	}
	if records == nil {
		records = []payroll.SalaryRecord{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportRegister(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !isPayrollOperator(user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := pathMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	rows, err := h.Service.Register(r.Context(), year, month)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export register", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payroll-register-%s.csv", monthKey(year, month)))
	writer := csv.NewWriter(w)
	header := []string{"employee_id", "employee_no", "first_name", "last_name", "gross_monthly", "full_days", "half_days", "daily_wage", "total_salary", "tax", "pf", "other_deductions", "net_salary", "currency", "status", "warnings"}
	if err := writer.Write(header); err != nil {
		zap.L().Warn("register header write failed", zap.Error(err))
	}
	for _, row := range rows {
		record := []string{
			row.EmployeeID,
			row.EmployeeNumber,
			row.FirstName,
			row.LastName,
			fmt.Sprintf("%.2f", row.Breakdown.GrossMonthly),
			strconv.Itoa(row.Breakdown.FullDays),
			strconv.Itoa(row.Breakdown.HalfDays),
			fmt.Sprintf("%.2f", row.Breakdown.DailyWage),
			fmt.Sprintf("%.2f", row.Breakdown.TotalSalary),
			fmt.Sprintf("%.2f", row.Breakdown.Tax),
			fmt.Sprintf("%.2f", row.Breakdown.PF),
			fmt.Sprintf("%.2f", row.Breakdown.OtherDeductions),
			fmt.Sprintf("%.2f", row.Breakdown.NetSalary),
			row.Currency,
			row.Status,
			strings.Join(row.Warnings, ";"),
		}
		if err := writer.Write(record); err != nil {
			zap.L().Warn("register row write failed", zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		zap.L().Warn("register flush failed", zap.Error(err))
	}
}

func (h *Handler) handleCreateDeduction(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload deductionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("description", payload.Description, "description is required")
	v.Month("month", payload.Month)
	v.Year("year", payload.Year)
	v.NonNegative("amount", payload.Amount)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.AddDeduction(r.Context(), payload.EmployeeID, payload.Year, payload.Month, payload.Description, payload.Amount, user.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "deduction_failed", "failed to create deduction", middleware.GetRequestID(r.Context()))
		return
	}

	if h.Notifier != nil {
		if userID, err := h.Service.EmployeeUserID(r.Context(), payload.EmployeeID); err == nil && userID != "" {
			body := fmt.Sprintf("A deduction of %.2f (%s) was added to your %s payroll.", payload.Amount, payload.Description, monthKey(payload.Year, payload.Month))
			if err := h.Notifier.Create(r.Context(), userID, notifications.TypeDeductionAdded, "Deduction added", body); err != nil {
				zap.L().Warn("deduction notification failed", zap.Error(err))
			}
		}
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payroll.deduction.create", "payroll_deduction", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		zap.L().Warn("payroll audit failed", zap.Error(err))
	}

	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDeductions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := queryMonthYear(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if !isPayrollOperator(user) {
		ownID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || ownID == "" {
			api.Fail(w, http.StatusForbidden, "forbidden", "no employee record is linked to this account", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = ownID
	}

	p := shared.ParsePagination(r, 50, 200)
	deductions, total, err := h.Service.ListDeductions(r.Context(), year, month, employeeID, p.Limit, p.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "deduction_list_failed", "failed to list deductions", middleware.GetRequestID(r.Context()))
		return
	}
	if deductions == nil {
		deductions = []payroll.Deduction{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, deductions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if !isPayrollOperator(user) {
		employeeID = ""
	}
	if employeeID == "" {
		ownID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || ownID == "" {
			api.Fail(w, http.StatusForbidden, "forbidden", "no employee record is linked to this account", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = ownID
	}

	p := shared.ParsePagination(r, 50, 200)
	slips, total, err := h.Service.ListPayslips(r.Context(), employeeID, p.Limit, p.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_list_failed", "failed to list payslips", middleware.GetRequestID(r.Context()))
		return
	}
	if slips == nil {
		slips = []payroll.Payslip{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, slips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	slip, err := h.Service.PayslipByID(r.Context(), payslipID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
		return
	}

	if !h.canViewEmployeePayroll(r, user, slip.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	filePath := slip.FileURL
	if filePath == "" {
		// The render job has not got to this payslip yet.
		filePath, err = h.Service.GeneratePayslipPDF(r.Context(), payslipID)
		if err != nil {
			zap.L().Warn("payslip on-demand render failed", zap.String("payslipId", payslipID), zap.Error(err))
			api.Fail(w, http.StatusInternalServerError, "payslip_missing", "payslip not available", middleware.GetRequestID(r.Context()))
			return
		}
		if h.Metrics != nil {
			h.Metrics.IncPayslipRendered()
		}
	}

	data, err := h.Service.ReadPayslipFile(filePath)
	if err != nil {
		zap.L().Warn("payslip read failed", zap.String("payslipId", payslipID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "payslip_missing", "payslip not available", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", slip.Number))
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("payslip write failed", zap.Error(err))
	}
}

func (h *Handler) handleRegeneratePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	if _, err := h.Service.PayslipByID(r.Context(), payslipID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
		return
	}

	render := func(ctx context.Context) (any, error) {
		path, err := h.Service.GeneratePayslipPDF(ctx, payslipID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"payslipId": payslipID, "path": path}, nil
	}

	// Run through the job service so manual regenerations show up in the
	// job_runs ledger alongside queued renders.
	var err error
	if h.Jobs != nil {
		_, err = h.Jobs.RunNow(r.Context(), jobs.JobPayslipRender, render)
	} else {
		_, err = render(r.Context())
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_generate_failed", "failed to regenerate payslip", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Metrics != nil {
		h.Metrics.IncPayslipRendered()
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payslip.regenerate", "payslip", payslipID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		zap.L().Warn("payroll audit failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"status": "regenerated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) canViewEmployeePayroll(r *http.Request, user auth.UserContext, employeeID string) bool {
	if isPayrollOperator(user) {
		return true
	}
	ownID, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID)
	return err == nil && ownID == employeeID
}

// isPayrollOperator separates ledger-wide reads from self-service ones. The
// payroll.read permission alone also covers employees viewing their own
// payslips, so month-level endpoints need the stronger check.
func isPayrollOperator(user auth.UserContext) bool {
	return user.RoleName == auth.RoleHR || user.RoleName == auth.RoleSystemAdmin
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func pathMonthYear(r *http.Request) (year, month int, ok bool) {
	y, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return 0, 0, false
	}
	if m < 1 || m > 12 || y < 1900 || y > 9999 {
		return 0, 0, false
	}
	return y, m, true
}

// queryMonthYear reads optional month and year query parameters, defaulting
// to the current UTC month.
func queryMonthYear(r *http.Request) (year, month int, ok bool) {
	now := time.Now().UTC()
	year, month = now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			return 0, 0, false
		}
		month = v
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1900 || v > 9999 {
			return 0, 0, false
		}
		year = v
	}
	return year, month, true
}
