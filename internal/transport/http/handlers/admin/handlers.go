package adminhandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/core"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Core           *core.Service
	Audit          *audit.Service
	Metrics        *metrics.Collector
	Perms          middleware.PermissionStore
	MetricsEnabled bool
}

func NewHandler(coreSvc *core.Service, auditSvc *audit.Service, collector *metrics.Collector, perms middleware.PermissionStore, metricsEnabled bool) *Handler {
	return &Handler{Core: coreSvc, Audit: auditSvc, Metrics: collector, Perms: perms, MetricsEnabled: metricsEnabled}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/metrics", h.handleMetrics)
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/roles", h.handleListRoles)
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/permissions", h.handleListPermissions)
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Put("/roles/{roleID}/permissions", h.handleUpdateRolePermissions)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.MetricsEnabled || h.Metrics == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "metrics are not enabled", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Core.ListRoles(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_list_failed", "failed to list roles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.Core.ListPermissions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "permission_list_failed", "failed to list permissions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, permissions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateRolePermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	roleID := chi.URLParam(r, "roleID")
	var payload struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	known := make(map[string]bool, len(auth.DefaultPermissions))
	for _, key := range auth.DefaultPermissions {
		known[key] = true
	}
	for _, key := range payload.Permissions {
		if !known[key] {
			api.Fail(w, http.StatusBadRequest, "validation_error", "unknown permission: "+key, middleware.GetRequestID(r.Context()))
			return
		}
	}

	if err := h.Core.UpdateRolePermissions(r.Context(), roleID, payload.Permissions); err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_update_failed", "failed to update role permissions", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "admin.role.permissions_update", "role", roleID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"permissions": payload.Permissions}); err != nil {
		zap.L().Warn("admin audit failed", zap.Error(err))
	}

	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}
