package factory

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes factory profile, verification and directory endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
}

func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/factory/profile", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleFactory))
		r.Get("/", h.getOwn)
		r.Put("/", h.update)
		r.Post("/documents", h.uploadDocument)
		r.Delete("/documents/{document_id}", h.removeDocument)
		r.Post("/submit", h.submit)
	})

	r.Route("/api/v1/admin/factories", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/verifications", h.listPendingVerifications)
		r.Get("/pending-changes", h.listPendingChanges)
		r.Get("/{id}", h.adminGet)
		r.Post("/{id}/verification/approve", h.approveVerification)
		r.Post("/{id}/verification/reject", h.rejectVerification)
		r.Post("/{id}/changes/approve", h.approveChanges)
		r.Post("/{id}/changes/reject", h.rejectChanges)
	})

	r.Route("/api/v1/factories", func(r chi.Router) {
		r.Get("/", h.directory) // GET /api/v1/factories?q=&industry=&city=&verified=true&sort=name
		r.Get("/{id}", h.getPublic)
	})
}

func (h *Handler) getOwn(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetOwnProfile(r.Context(), httpx.Actor(r).UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req Details
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.UpdateProfile(r.Context(), httpx.Actor(r).UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	status := http.StatusOK
	if p.PendingChanges.Data != nil {
		status = http.StatusAccepted
	}
	httpx.Respond(w, status, p)
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, hdr, err := httpx.FormFile(w, r, "file", h.maxUploadBytes)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = hdr.Filename
	}
	p, err := h.service.UploadDocument(r.Context(), httpx.Actor(r).UserID, name, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) removeDocument(w http.ResponseWriter, r *http.Request) {
	docID, err := httpx.UUIDParam(r, "document_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.RemoveDocument(r.Context(), httpx.Actor(r).UserID, docID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.SubmitForVerification(r.Context(), httpx.Actor(r).UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) listPendingVerifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPendingVerifications(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) listPendingChanges(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPendingChanges(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) adminGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) approveVerification(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id uuid.UUID, _ string) (*Profile, error) {
		return h.service.ApproveVerification(r.Context(), id)
	}, false)
}

func (h *Handler) rejectVerification(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id uuid.UUID, reason string) (*Profile, error) {
		return h.service.RejectVerification(r.Context(), id, reason)
	}, true)
}

func (h *Handler) approveChanges(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id uuid.UUID, _ string) (*Profile, error) {
		return h.service.ApproveChanges(r.Context(), id)
	}, false)
}

func (h *Handler) rejectChanges(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id uuid.UUID, reason string) (*Profile, error) {
		return h.service.RejectChanges(r.Context(), id, reason)
	}, true)
}

// decide runs an admin decision on the factory in the URL, reading a reason
// body when withReason is set.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(id uuid.UUID, reason string) (*Profile, error), withReason bool) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req RejectRequest
	if withReason && r.ContentLength != 0 {
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
	}
	p, err := fn(id, req.Reason)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) directory(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	q := r.URL.Query()
	list, err := h.service.Directory(r.Context(), DirectoryFilter{
		Search:       q.Get("q"),
		Industry:     q.Get("industry"),
		City:         q.Get("city"),
		VerifiedOnly: httpx.QueryBool(r, "verified", false),
		Sort:         q.Get("sort"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) getPublic(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.GetPublic(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}
