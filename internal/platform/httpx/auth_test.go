package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, identity.RoleAdmin, Actor(r).Role)
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(identity.RoleAdmin)(ok)

	tests := []struct {
		name   string
		id     *identity.Identity
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, http.StatusForbidden},
		{"admin", &identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != nil {
				req = req.WithContext(identity.WithIdentity(req.Context(), *tc.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}
