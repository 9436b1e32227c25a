package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes RFQ routing endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/routing", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httpx.RequireRole(identity.RoleBuyer, identity.RoleAdmin))
			r.Post("/rfqs/{rfq_id}", h.route)                  // POST /api/v1/routing/rfqs/{id}
			r.Get("/rfqs/{rfq_id}/invitations", h.invitations) // GET  /api/v1/routing/rfqs/{id}/invitations
		})
		r.With(httpx.RequireRole(identity.RoleFactory)).Get("/invitations", h.factoryFeed)
	})

	r.Route("/api/v1/admin/routing", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/rfqs/{rfq_id}/candidates", h.preview)
		r.Post("/rfqs/{rfq_id}/invite", h.invite)

		// Rules management
		r.Get("/rules", h.listRules)
		r.Post("/rules", h.createRule)
		r.Put("/rules/{id}", h.updateRule)
		r.Delete("/rules/{id}", h.deleteRule)
	})
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	rfqID, err := httpx.UUIDParam(r, "rfq_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req RouteRequest
	if r.ContentLength != 0 {
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
	}
	invited, err := h.service.Route(r.Context(), httpx.Actor(r), rfqID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, invited)
}

func (h *Handler) invitations(w http.ResponseWriter, r *http.Request) {
	rfqID, err := httpx.UUIDParam(r, "rfq_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.service.ListForRFQ(r.Context(), httpx.Actor(r), rfqID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) factoryFeed(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListForFactory(r.Context(), httpx.Actor(r).UserID, page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	rfqID, err := httpx.UUIDParam(r, "rfq_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.service.Preview(r.Context(), rfqID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	rfqID, err := httpx.UUIDParam(r, "rfq_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req InviteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	inv, err := h.service.Invite(r.Context(), rfqID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, inv)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rules)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	rule, err := h.service.CreateRule(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, rule)
}

func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req RuleRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	rule, err := h.service.UpdateRule(r.Context(), id, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rule)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
