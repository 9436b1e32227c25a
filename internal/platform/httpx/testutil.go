package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WithURLParams installs chi route parameters on req, for handler tests that
// call a handler method directly.
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}
