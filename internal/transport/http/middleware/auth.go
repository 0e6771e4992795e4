package middleware

import (
	"context"
	"net/http"
	"strings"

	"paycore/internal/domain/auth"
)

type ctxKeyType string

const ctxKeyUser ctxKeyType = "auth_user"

// SessionChecker verifies that the session referenced by a token is still
// live. A nil checker skips the lookup, which keeps token-only tests cheap.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID, sessionTokenHash string) (bool, error)
}

// Auth attaches the authenticated user to the request context when a valid
// bearer token is present. It never rejects: route guards decide whether an
// anonymous request is acceptable.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := tokenClaims(r, secret)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.SessionValid(r.Context(), claims.UserID, auth.HashToken(claims.SessionID))
				if err != nil || !valid {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
				UserID:    claims.UserID,
				RoleID:    claims.RoleID,
				RoleName:  claims.RoleName,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenClaims(r *http.Request, secret string) (*auth.Claims, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, false
	}
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
