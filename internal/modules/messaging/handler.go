package messaging

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes conversation endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
}

func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/conversations", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleBuyer, identity.RoleFactory))
		r.Post("/", h.start)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/messages", h.messages) // GET  /api/v1/conversations/{id}/messages?after=<RFC3339>
		r.Post("/{id}/messages", h.send)    // POST JSON {"body"} or multipart body+file
		r.Post("/{id}/read", h.markRead)
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.service.Start(r.Context(), httpx.Actor(r), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.List(r.Context(), httpx.Actor(r), page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.service.Get(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	after, err := httpx.QueryTime(r, "after")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.Messages(r.Context(), httpx.Actor(r), id, after, limit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var (
		req  SendRequest
		file io.Reader
	)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, _, err := httpx.FormFile(w, r, "file", h.maxUploadBytes)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		defer f.Close()
		file = f
		req.Body = r.FormValue("body")
	} else if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	m, err := h.service.Send(r.Context(), httpx.Actor(r), id, req, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, m)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	n, err := h.service.MarkRead(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]int64{"marked": n})
}
