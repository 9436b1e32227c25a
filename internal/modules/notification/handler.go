package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
)

// Handler exposes the caller's notification inbox.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(httpx.RequireAuth)
		r.Get("/", h.list)                    // GET  /api/v1/notifications?unread=true
		r.Get("/unread-count", h.unreadCount) // GET  /api/v1/notifications/unread-count
		r.Post("/{id}/read", h.markRead)      // POST /api/v1/notifications/{id}/read
		r.Post("/read-all", h.markAllRead)    // POST /api/v1/notifications/read-all
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.List(r.Context(), httpx.Actor(r).UserID, ListFilter{
		UnreadOnly: httpx.QueryBool(r, "unread", false),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UnreadCount(r.Context(), httpx.Actor(r).UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, UnreadCount{Unread: n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), httpx.Actor(r).UserID, id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context(), httpx.Actor(r).UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]int64{"updated": n})
}
