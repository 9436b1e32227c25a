package product

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes catalogue endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
}

func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/factory/products", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleFactory))
		r.Get("/", h.listOwn)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/images", h.uploadImage)
		r.Delete("/{id}/images", h.removeImage) // DELETE ...?url=<image url>
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.list) // GET /api/v1/products?q=&category=&factory_id=&min_price=&max_price=&sort=price_asc
		r.Get("/{id}", h.get)
	})

	r.Route("/api/v1/admin/products", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Put("/{id}/active", h.setActive)
	})
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListOwn(r.Context(), httpx.Actor(r).UserID, page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), httpx.Actor(r).UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req ProductRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), httpx.Actor(r).UserID, id, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), httpx.Actor(r).UserID, id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	file, _, err := httpx.FormFile(w, r, "file", h.maxUploadBytes)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer file.Close()

	p, err := h.service.UploadImage(r.Context(), httpx.Actor(r).UserID, id, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) removeImage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		httpx.Error(w, r, apperr.Invalid("url query parameter is required"))
		return
	}
	p, err := h.service.RemoveImage(r.Context(), httpx.Actor(r).UserID, id, url)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	q := r.URL.Query()
	f := ListFilter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if v := q.Get("factory_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("factory_id must be a UUID"))
			return
		}
		f.FactoryID = &id
	}
	var err error
	if f.MinPrice, err = httpx.QueryFloat(r, "min_price"); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if f.MaxPrice, err = httpx.QueryFloat(r, "max_price"); err != nil {
		httpx.Error(w, r, err)
		return
	}

	list, err := h.service.List(r.Context(), f)
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
	p, err := h.service.Get(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req SetActiveRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}
