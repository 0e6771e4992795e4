package attendancehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycore/internal/domain/attendance"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/core"
	"paycore/internal/domain/notifications"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service     *attendance.Service
	Core        *core.Service
	Audit       *audit.Service
	Notifier    *notifications.Service
	Perms       middleware.PermissionStore
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(svc *attendance.Service, coreSvc *core.Service, auditSvc *audit.Service, notifier *notifications.Service, perms middleware.PermissionStore, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: svc, Core: coreSvc, Audit: auditSvc, Notifier: notifier, Perms: perms, Idempotency: idem}
}

type recordPayload struct {
	EmployeeID string  `json:"employeeId"`
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Note       string  `json:"note"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/", h.handleRecord)
	r.Route("/employees/{employeeID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/summary", h.handleSummary)
	})
	r.With(middleware.RequirePermission(auth.PermAttendanceManage, h.Perms)).Delete("/records/{recordID}", h.handleDelete)
	r.With(middleware.RequirePermission(auth.PermAttendanceManage, h.Perms)).Post("/import", h.handleImport)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	day, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "date must be formatted YYYY-MM-DD", middleware.GetRequestID(r.Context()))
		return
	}

	canManage := false
	if h.Perms != nil {
		allowed, err := h.Perms.HasPermission(r.Context(), user.RoleID, auth.PermAttendanceManage)
		if err != nil {
			zap.L().Warn("attendance manage permission lookup failed", zap.Error(err))
		}
		canManage = allowed
	}

	targetID := payload.EmployeeID
	if targetID == "" || !canManage {
		ownID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || ownID == "" {
			api.Fail(w, http.StatusBadRequest, "no_employee", "no employee record is linked to this account", middleware.GetRequestID(r.Context()))
			return
		}
		if targetID == "" {
			targetID = ownID
		}
		if targetID != ownID {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot record attendance for another employee", middleware.GetRequestID(r.Context()))
			return
		}
	}

	existed, err := h.Service.RecordExists(r.Context(), targetID, day)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "unable to record attendance", middleware.GetRequestID(r.Context()))
		return
	}
	if existed && !canManage {
		api.Fail(w, http.StatusConflict, "duplicate_attendance", "hours are already recorded for this day", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Service.RecordHours(r.Context(), targetID, day, payload.Hours, payload.Note, attendance.SourceManual, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidHours):
			api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, attendance.ErrUnknownEmployee):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "attendance_failed", "unable to record attendance", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if existed && h.Notifier != nil {
		if uid, err := h.Core.UserIDByEmployeeID(r.Context(), targetID); err == nil && uid != "" && uid != user.UserID {
			body := fmt.Sprintf("Your recorded hours for %s were corrected to %.2f.", rec.Date.Format("2006-01-02"), rec.Hours)
			if err := h.Notifier.Create(r.Context(), uid, notifications.TypeAttendanceCorrected, "Attendance corrected", body); err != nil {
				zap.L().Warn("attendance correction notification failed", zap.Error(err))
			}
		}
	}

	after := map[string]any{"employeeId": rec.EmployeeID, "date": rec.Date.Format("2006-01-02"), "hours": rec.Hours, "source": rec.Source}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.record", "attendance_record", rec.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		zap.L().Warn("attendance audit failed", zap.Error(err))
	}

	if existed {
		api.Success(w, rec, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployee(r, user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions for this employee", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := monthWindow(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	p := shared.ParsePagination(r, 100, 500)
	records, total, err := h.Service.List(r.Context(), employeeID, from, to, p.Limit, p.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_list_failed", "unable to list attendance", middleware.GetRequestID(r.Context()))
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployee(r, user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions for this employee", middleware.GetRequestID(r.Context()))
		return
	}

	year, month, ok := monthWindow(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "month must be 1-12 and year a four digit year", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Service.Summary(r.Context(), employeeID, year, month)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "unable to summarise attendance", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	recordID := chi.URLParam(r, "recordID")
	rec, err := h.Service.RecordByID(r.Context(), recordID)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "unable to delete attendance", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.Delete(r.Context(), recordID); err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "unable to delete attendance", middleware.GetRequestID(r.Context()))
		return
	}

	before := map[string]any{"employeeId": rec.EmployeeID, "date": rec.Date.Format("2006-01-02"), "hours": rec.Hours}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.delete", "attendance_record", recordID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, nil); err != nil {
		zap.L().Warn("attendance audit failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "unable to read csv payload", middleware.GetRequestID(r.Context()))
		return
	}

	key, handled := middleware.CheckIdempotency(w, r, h.Idempotency, "attendance.import", body)
	if handled {
		return
	}

	result, err := h.Service.ImportCSV(r.Context(), body, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid csv payload", middleware.GetRequestID(r.Context()))
		return
	}

	after := map[string]any{"imported": result.Imported, "skipped": result.Skipped}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.import", "attendance_import", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		zap.L().Warn("attendance audit failed", zap.Error(err))
	}

	middleware.SaveIdempotency(r.Context(), h.Idempotency, "attendance.import", key, body, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

// canViewEmployee applies the same read scoping as the employee profile:
// employees see their own records, managers their reports, HR everyone.
func (h *Handler) canViewEmployee(r *http.Request, user auth.UserContext, employeeID string) bool {
	if user.RoleName == auth.RoleHR || user.RoleName == auth.RoleSystemAdmin {
		return true
	}
	ownID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil {
		return false
	}
	if ownID == employeeID {
		return true
	}
	if user.RoleName == auth.RoleManager {
		isManager, err := h.Core.IsManagerOf(r.Context(), ownID, employeeID)
		if err != nil {
			return false
		}
		return isManager
	}
	return false
}

// monthWindow reads optional month and year query parameters, defaulting to
// the current UTC month.
func monthWindow(r *http.Request) (year, month int, ok bool) {
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
