package content

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type mockRepo struct {
	entries map[string]Entry
	gets    int
}

func (m *mockRepo) Get(ctx context.Context, key string) (*Entry, error) {
	m.gets++
	e, ok := m.entries[key]
	if !ok {
		return nil, apperr.NotFound("content")
	}
	return &e, nil
}
func (m *mockRepo) List(ctx context.Context, prefix string) ([]Entry, error) {
	out := []Entry{}
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
func (m *mockRepo) Upsert(ctx context.Context, e *Entry) error {
	e.UpdatedAt = time.Now().UTC()
	m.entries[e.Key] = *e
	return nil
}
func (m *mockRepo) Delete(ctx context.Context, key string) error {
	if _, ok := m.entries[key]; !ok {
		return apperr.NotFound("content")
	}
	delete(m.entries, key)
	return nil
}

func newService(t *testing.T) (Service, *mockRepo) {
	repo := &mockRepo{entries: map[string]Entry{}}
	return NewService(repo, cache.NewMemory(), zaptest.NewLogger(t)), repo
}

func TestGetIsCachedUntilUpsert(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	admin := uuid.New()

	_, err := svc.Upsert(ctx, admin, "Home.Hero", UpsertRequest{Value: json.RawMessage(`{"title":"v1"}`)})
	require.NoError(t, err)

	e, err := svc.Get(ctx, "home.hero")
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"v1"}`, string(e.Value.Data))
	_, err = svc.Get(ctx, "home.hero")
	require.NoError(t, err)
	require.Equal(t, 1, repo.gets)

	_, err = svc.Upsert(ctx, admin, "home.hero", UpsertRequest{Value: json.RawMessage(`{"title":"v2"}`)})
	require.NoError(t, err)
	e, err = svc.Get(ctx, "home.hero")
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"v2"}`, string(e.Value.Data))
	require.Equal(t, admin, *e.UpdatedBy)
	require.Equal(t, 2, repo.gets)
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, key := range []string{"", "home..hero", "Home Hero", "../etc", strings.Repeat("a", 101)} {
		_, err := svc.Upsert(ctx, uuid.New(), key, UpsertRequest{Value: json.RawMessage(`1`)})
		require.ErrorIs(t, err, apperr.ErrInvalid, key)
	}
	for _, value := range []string{"", "null", "{broken"} {
		_, err := svc.Upsert(ctx, uuid.New(), "faq", UpsertRequest{Value: json.RawMessage(value)})
		require.ErrorIs(t, err, apperr.ErrInvalid, value)
	}
	require.ErrorIs(t, svc.Delete(ctx, "faq"), apperr.ErrNotFound)
}

func TestContentRoutes(t *testing.T) {
	svc, _ := newService(t)
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	do := func(req *http.Request, as identity.Identity) *httptest.ResponseRecorder {
		req = req.WithContext(identity.WithIdentity(req.Context(), as))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	admin := identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}
	buyer := identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}

	rec := do(httptest.NewRequest(http.MethodPut, "/api/v1/admin/content/footer.contact",
		bytes.NewBufferString(`{"value":{"email":"help@jisr.test"}}`)), buyer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(httptest.NewRequest(http.MethodPut, "/api/v1/admin/content/footer.contact",
		bytes.NewBufferString(`{"value":{"email":"help@jisr.test"}}`)), admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(httptest.NewRequest(http.MethodGet, "/api/v1/content/footer.contact", nil), identity.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "help@jisr.test")

	rec = do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/content/footer.contact", nil), admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(httptest.NewRequest(http.MethodGet, "/api/v1/content/footer.contact", nil), identity.Identity{})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostgresListEscapesPrefix(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`WHERE key LIKE \$1 ESCAPE '\\' ORDER BY key`).
		WithArgs(`home\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_by", "updated_at"}).
			AddRow("home_x", []byte(`{"a":1}`), nil, now))

	list, err := NewPostgresRepository(sqlx.NewDb(raw, "postgres")).List(context.Background(), "home_")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.JSONEq(t, `{"a":1}`, string(list[0].Value.Data))
	require.NoError(t, mock.ExpectationsWereMet())
}
