package httpx

import (
	"net/http"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// RequireRole rejects requests without an identity (401) or whose role is not
// listed (403). With no roles any authenticated caller passes.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok {
				Error(w, r, apperr.ErrUnauthorized)
				return
			}
			if len(roles) > 0 && !hasRole(id.Role, roles) {
				Error(w, r, apperr.Forbidden("role %s may not access this resource", id.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests.
var RequireAuth = RequireRole()

// Actor returns the caller identity installed by the authentication middleware.
// Anonymous requests yield the zero Identity.
func Actor(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func hasRole(role identity.Role, roles []identity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
