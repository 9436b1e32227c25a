package messaging

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

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

func TestConversationOverHTTP(t *testing.T) {
	f := newFixture(t)

	rec := serve(f, httptest.NewRequest(http.MethodPost, "/api/v1/conversations",
		bytes.NewBufferString(`{"factory_id":"`+f.factoryID.String()+`"}`)), f.buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	var c Conversation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	path := "/api/v1/conversations/" + c.ID.String() + "/messages"

	rec = serve(f, httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"body":"hello"}`)), f.buyer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("body", "drawing attached"))
	part, err := mw.CreateFormFile("file", "drawing.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = serve(f, req, f.factory)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(f, httptest.NewRequest(http.MethodGet,
		path+"?after="+url.QueryEscape(first.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00")), nil), f.buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	var newer []Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&newer))
	require.Len(t, newer, 1)
	require.Equal(t, "drawing attached", newer[0].Body)
	require.Equal(t, AttachmentFile, newer[0].AttachmentType)

	rec = serve(f, httptest.NewRequest(http.MethodGet, path+"?after=yesterday", nil), f.buyer)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil),
		identity.Identity{UserID: f.buyer.UserID, Role: identity.RoleAdmin})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
