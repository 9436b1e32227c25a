package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	calls int
	since time.Time
}

func (m *mockRepo) Analytics(ctx context.Context) (*Analytics, error) {
	m.calls++
	return &Analytics{
		UsersByRole:   map[string]int{"BUYER": 3, "FACTORY": 2, "ADMIN": 1},
		GMV:           map[string]float64{"SAR": 1234.5678},
		AverageRating: 4.26,
	}, nil
}

func (m *mockRepo) DailyOrders(ctx context.Context, since time.Time) ([]DailyOrders, error) {
	m.since = since
	return []DailyOrders{{Day: since, Orders: 2, Amount: 90}}, nil
}

func TestAnalyticsRoundsAndCaches(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, cache.NewMemory(), zaptest.NewLogger(t))

	a, err := svc.Analytics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1234.57, a.GMV["SAR"])
	require.Equal(t, 4.3, a.AverageRating)
	require.False(t, a.GeneratedAt.IsZero())

	_, err = svc.Analytics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
}

func TestDailyOrdersWindow(t *testing.T) {
	repo := &mockRepo{}
	s := NewService(repo, cache.NewMemory(), zaptest.NewLogger(t)).(*service)
	s.now = func() time.Time { return time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC) }

	list, err := s.DailyOrders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), repo.since)

	for _, days := range []int{0, MaxDays + 1} {
		_, err = s.DailyOrders(context.Background(), days)
		require.ErrorIs(t, err, apperr.ErrInvalid)
	}
}

func TestAnalyticsRequiresAdmin(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewService(&mockRepo{}, cache.NewMemory(), zaptest.NewLogger(t))).RegisterRoutes(r)
	do := func(path string, role identity.Role) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(identity.WithIdentity(req.Context(), identity.Identity{UserID: uuid.New(), Role: role}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusForbidden, do("/api/v1/admin/analytics", identity.RoleFactory))
	require.Equal(t, http.StatusOK, do("/api/v1/admin/analytics", identity.RoleAdmin))
	require.Equal(t, http.StatusBadRequest, do("/api/v1/admin/analytics/orders/daily?days=abc", identity.RoleAdmin))
	require.Equal(t, http.StatusOK, do("/api/v1/admin/analytics/orders/daily?days=14", identity.RoleAdmin))
}

func TestPostgresAnalytics(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	for range groupedCounts {
		mock.ExpectQuery(`GROUP BY`).WillReturnRows(sqlmock.NewRows([]string{"key", "count"}))
	}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE is_banned`).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f"}).AddRow(1, 2, 30, 1, 8, 4.5))
	mock.ExpectQuery(`WHERE status = 'DELIVERED' GROUP BY currency`).
		WillReturnRows(sqlmock.NewRows([]string{"currency", "sum"}).AddRow("SAR", 5000.0).AddRow("USD", 120.0))

	a, err := NewPostgresRepository(sqlx.NewDb(raw, "postgres")).Analytics(context.Background())
	require.NoError(t, err)
	require.Empty(t, a.OrdersByStatus)
	require.Equal(t, 30, a.ActiveProducts)
	require.Equal(t, 1, a.OpenDisputes)
	require.Equal(t, map[string]float64{"SAR": 5000, "USD": 120}, a.GMV)
	require.NoError(t, mock.ExpectationsWereMet())
}
