package dispute

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

func serve(f *fixture, req *http.Request, as identity.Identity) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(f.svc, 1<<20).RegisterRoutes(r)
	req = req.WithContext(identity.WithIdentity(req.Context(), as))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func evidenceRequest(t *testing.T, path string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDisputeFlowOverHTTP(t *testing.T) {
	f := newFixture(t, order.StatusShipped)
	admin := identity.Identity{UserID: f.adminID, Role: identity.RoleAdmin}

	rec := serve(f, httptest.NewRequest(http.MethodPost, "/api/v1/disputes/orders/"+f.order.ID.String(),
		bytes.NewBufferString(`{"reason":"Short shipment","description":"200 units missing"}`)), f.buyer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var d Dispute
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))

	rec = serve(f, evidenceRequest(t, "/api/v1/disputes/"+d.ID.String()+"/evidence"), f.factory)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = serve(f, evidenceRequest(t, "/api/v1/disputes/"+d.ID.String()+"/evidence"), f.buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	require.Contains(t, d.EvidenceURL, "https://cdn.test/disputes/"+d.ID.String())

	rec = serve(f, httptest.NewRequest(http.MethodPost, "/api/v1/admin/disputes/"+d.ID.String()+"/resolve",
		bytes.NewBufferString(`{"outcome":"cancel_order","resolution":"Refund agreed"}`)), f.buyer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(f, httptest.NewRequest(http.MethodPost, "/api/v1/admin/disputes/"+d.ID.String()+"/resolve",
		bytes.NewBufferString(`{"outcome":"cancel_order","resolution":"Refund agreed"}`)), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, order.StatusCancelled, f.repo.orders[f.order.ID].Status)

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/admin/disputes?status=RESOLVED", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Dispute
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
}
