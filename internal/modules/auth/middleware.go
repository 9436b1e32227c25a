package auth

import (
	"net/http"
	"strings"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Authenticate installs the caller identity when a bearer token is present.
// Requests without a token pass through anonymously; route groups enforce
// access with httpx.RequireRole.
func Authenticate(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				httpx.Error(w, r, apperr.ErrUnauthorized)
				return
			}
			id, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				httpx.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}
