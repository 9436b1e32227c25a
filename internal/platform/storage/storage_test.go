package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

// smallest valid PNG header is enough for sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestUploader(t *testing.T, max int64) (*uploader, *Memory) {
	mem := NewMemory()
	u := NewUploader(mem, "https://cdn.example.com/jisr/", max, zaptest.NewLogger(t)).(*uploader)
	return u, mem
}

func TestUploadStoresImage(t *testing.T) {
	u, mem := newTestUploader(t, 1024)

	obj, err := u.Upload(context.Background(), "products", KindImage, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.Key, "products/"))
	require.True(t, strings.HasSuffix(obj.Key, ".png"))
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, "https://cdn.example.com/jisr/"+obj.Key, obj.URL)
	require.True(t, obj.IsImage())
	require.True(t, mem.Has(obj.Key))
	require.Equal(t, obj.Key, u.KeyFromURL(obj.URL))
	require.Empty(t, u.KeyFromURL("https://elsewhere.test/x.png"))
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	u, _ := newTestUploader(t, 1024)

	_, err := u.Upload(context.Background(), "products", KindImage, strings.NewReader("just some text"))
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	u, _ := newTestUploader(t, 8)

	_, err := u.Upload(context.Background(), "documents", KindAny, bytes.NewReader(pngBytes))
	require.ErrorIs(t, err, apperr.ErrInvalid)
	require.Contains(t, err.Error(), "exceeds")
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	u, _ := newTestUploader(t, 8)

	_, err := u.Upload(context.Background(), "documents", KindAny, bytes.NewReader(nil))
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDocumentKindAcceptsPDF(t *testing.T) {
	u, _ := newTestUploader(t, 1024)

	obj, err := u.Upload(context.Background(), "documents", KindDocument, strings.NewReader("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", obj.ContentType)
	require.False(t, obj.IsImage())
}

func TestRemove(t *testing.T) {
	u, mem := newTestUploader(t, 1024)
	obj, err := u.Upload(context.Background(), "products", KindImage, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, u.Remove(context.Background(), obj.Key))
	require.False(t, mem.Has(obj.Key))
	require.NoError(t, u.Remove(context.Background(), ""))
}

func TestMemoryServesStoredObjects(t *testing.T) {
	u, mem := newTestUploader(t, 1024)
	obj, err := u.Upload(context.Background(), "products", KindImage, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mem.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+obj.Key, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.URL.Path = obj.Key
	rec = httptest.NewRecorder()
	mem.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, pngBytes, rec.Body.Bytes())
}
