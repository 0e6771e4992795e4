package notificationshandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/notifications"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

// Handler serves the per-user notification feed and the delivery settings
// that HR controls. Feed routes only need an authenticated user; the
// settings routes are additionally gated on role inside the handler since
// they sit under the same mount.
type Handler struct {
	svc *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{svc: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleFeed)
	r.Post("/{notificationID}/read", h.handleMarkRead)
	r.Get("/settings", h.handleGetSettings)
	r.Put("/settings", h.handlePutSettings)
}

// caller resolves the authenticated user or writes a 401. The second
// return reports whether the request may proceed.
func caller(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return user, ok
}

// settingsManager additionally requires the HR or system admin role.
func settingsManager(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := caller(w, r)
	if !ok {
		return user, false
	}
	if user.RoleName != auth.RoleHR && user.RoleName != auth.RoleSystemAdmin {
		api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
		return user, false
	}
	return user, true
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, 500)
	total, err := h.svc.Count(r.Context(), user.UserID)
	if err != nil {
		zap.L().Warn("notification count failed", zap.Error(err))
	}

	items, err := h.svc.List(r.Context(), user.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", reqID)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	if err := h.svc.MarkRead(r.Context(), user.UserID, chi.URLParam(r, "notificationID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, reqID)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := settingsManager(w, r); !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	enabled, from, err := h.svc.GetSettings(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, map[string]any{"emailEnabled": enabled, "emailFrom": from}, reqID)
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := settingsManager(w, r); !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		EmailEnabled bool   `json:"emailEnabled"`
		EmailFrom    string `json:"emailFrom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	if err := h.svc.UpdateSettings(r.Context(), payload.EmailEnabled, payload.EmailFrom); err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to update settings", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, reqID)
}
