package user

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes the admin user directory.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/admin/users", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.listUsers)        // GET  /api/v1/admin/users?role=&q=&banned=
		r.Get("/{id}", h.getUser)      // GET  /api/v1/admin/users/{id}
		r.Post("/{id}/ban", h.ban)     // POST /api/v1/admin/users/{id}/ban
		r.Post("/{id}/unban", h.unban) // POST /api/v1/admin/users/{id}/unban
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	f := ListFilter{
		Role:   identity.Role(strings.ToUpper(r.URL.Query().Get("role"))),
		Search: r.URL.Query().Get("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if r.URL.Query().Get("banned") != "" {
		b := httpx.QueryBool(r, "banned", false)
		f.Banned = &b
	}
	users, err := h.service.ListUsers(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, u)
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request)   { h.setBanned(w, r, true) }
func (h *Handler) unban(w http.ResponseWriter, r *http.Request) { h.setBanned(w, r, false) }

func (h *Handler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.service.SetBanned(r.Context(), httpx.Actor(r), id, banned)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, u)
}
