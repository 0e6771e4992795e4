package middleware

import (
	"context"
	"net/http"

	"paycore/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission refuses the request unless the authenticated role holds
// the named permission. Refusals are written here so handlers never run for
// a half-authorized request.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	g := permissionGuard{permission: permission, store: store}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.admit(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type permissionGuard struct {
	permission string
	store      PermissionStore
}

func (g permissionGuard) admit(w http.ResponseWriter, r *http.Request) bool {
	reqID := GetRequestID(r.Context())

	user, ok := GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return false
	}

	allowed, err := g.store.HasPermission(r.Context(), user.RoleID, g.permission)
	switch {
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "permission_error", "permission lookup failed", reqID)
		return false
	case !allowed:
		api.Fail(w, http.StatusForbidden, "forbidden", "role lacks the required permission", reqID)
		return false
	}
	return true
}
