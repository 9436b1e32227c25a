package rfq

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes RFQ and quote endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
}

func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/buyer/rfqs", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleBuyer))
		r.Post("/", h.create)
		r.Get("/", h.listOwn) // GET /api/v1/buyer/rfqs?status=OPEN
		r.Post("/{id}/attachment", h.uploadAttachment)
		r.Post("/{id}/close", h.close)
		r.Post("/{id}/quotes/{quote_id}/award", h.award)
	})

	r.Route("/api/v1/rfqs", func(r chi.Router) {
		r.Use(httpx.RequireAuth)
		r.With(httpx.RequireRole(identity.RoleFactory)).Get("/open", h.listOpen)
		r.Get("/{id}", h.get)
		r.Get("/{id}/quotes", h.listQuotes)
		r.With(httpx.RequireRole(identity.RoleFactory)).Post("/{id}/quotes", h.submitQuote)
	})

	r.Route("/api/v1/factory/quotes", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleFactory))
		r.Get("/", h.listOwnQuotes)
	})

	r.Route("/api/v1/admin/rfqs", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.listAll)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	q, err := h.service.Create(r.Context(), httpx.Actor(r).UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, q)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListOwn(r.Context(), httpx.Actor(r).UserID, Status(r.URL.Query().Get("status")), page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) uploadAttachment(w http.ResponseWriter, r *http.Request) {
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

	q, err := h.service.UploadAttachment(r.Context(), httpx.Actor(r).UserID, id, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, q)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	q, err := h.service.Close(r.Context(), httpx.Actor(r).UserID, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, q)
}

func (h *Handler) award(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	quoteID, err := httpx.UUIDParam(r, "quote_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.service.Award(r.Context(), httpx.Actor(r).UserID, id, quoteID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, res)
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListOpen(r.Context(), r.URL.Query().Get("category"), page.Limit, page.Offset)
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
	q, err := h.service.Get(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, q)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.service.ListQuotes(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) submitQuote(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req QuoteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	q, err := h.service.SubmitQuote(r.Context(), httpx.Actor(r).UserID, id, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, q)
}

func (h *Handler) listOwnQuotes(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListOwnQuotes(r.Context(), httpx.Actor(r).UserID, page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	q := r.URL.Query()
	f := ListFilter{
		Status:   Status(q.Get("status")),
		Category: q.Get("category"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if v := q.Get("buyer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("buyer_id must be a UUID"))
			return
		}
		f.BuyerID = &id
	}
	list, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}
