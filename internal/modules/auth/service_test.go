package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jisr-market/jisr-backend/internal/modules/user"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type mockUsers struct {
	byID     map[uuid.UUID]*user.User
	profiles map[uuid.UUID]string
}

func newMockUsers() *mockUsers {
	return &mockUsers{byID: map[uuid.UUID]*user.User{}, profiles: map[uuid.UUID]string{}}
}

func (m *mockUsers) Create(ctx context.Context, u *user.User, companyName string) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	m.byID[u.ID] = u
	m.profiles[u.ID] = companyName
	return nil
}
func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user")
}
func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user")
}
func (m *mockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	m.byID[id].PasswordHash = hash
	return nil
}
func (m *mockUsers) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	m.byID[id].IsBanned = banned
	return nil
}
func (m *mockUsers) List(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	return nil, nil
}

func register(t *testing.T, svc Service, email string, role identity.Role) *user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{
		Email: email, Password: "correct-horse", Name: "Test User", Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterCreatesAccountWithProfile(t *testing.T) {
	repo := newMockUsers()
	svc := NewService(repo, "test-secret", time.Hour)

	u, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "  Factory@Example.com ",
		Password:    "correct-horse",
		Name:        "Riyadh Plastics",
		Role:        "factory",
		CompanyName: "Riyadh Plastics Co.",
	})
	require.NoError(t, err)
	require.Equal(t, "factory@example.com", u.Email)
	require.Equal(t, identity.RoleFactory, u.Role)
	require.NotEqual(t, "correct-horse", u.PasswordHash)
	require.Equal(t, "Riyadh Plastics Co.", repo.profiles[u.ID])
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMockUsers(), "test-secret", time.Hour)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"admin role", RegisterRequest{Email: "a@b.co", Password: "long-enough", Name: "A", Role: identity.RoleAdmin}},
		{"short password", RegisterRequest{Email: "a@b.co", Password: "short", Name: "A", Role: identity.RoleBuyer}},
		{"bad email", RegisterRequest{Email: "nope", Password: "long-enough", Name: "A", Role: identity.RoleBuyer}},
		{"missing name", RegisterRequest{Email: "a@b.co", Password: "long-enough", Role: identity.RoleBuyer}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			require.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUsers(), "test-secret", time.Hour)
	register(t, svc, "dup@example.com", identity.RoleBuyer)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "dup@example.com", Password: "correct-horse", Name: "Again", Role: identity.RoleBuyer,
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc := NewService(newMockUsers(), "test-secret", time.Hour)
	u := register(t, svc, "buyer@example.com", identity.RoleBuyer)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "BUYER@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, u.ID, resp.User.ID)

	id, err := svc.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	require.Equal(t, identity.Identity{UserID: u.ID, Role: identity.RoleBuyer}, id)
}

func TestLoginFailures(t *testing.T) {
	repo := newMockUsers()
	svc := NewService(repo, "test-secret", time.Hour)
	u := register(t, svc, "buyer@example.com", identity.RoleBuyer)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "buyer@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	repo.byID[u.ID].IsBanned = true
	_, err = svc.Login(ctx, LoginRequest{Email: "buyer@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	repo := newMockUsers()
	svc := NewService(repo, "test-secret", time.Hour)
	u := register(t, svc, "f@example.com", identity.RoleFactory)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "not-a-jwt")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	other := NewService(repo, "another-secret", time.Hour)
	resp, err := other.Login(ctx, LoginRequest{Email: "f@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, resp.Token)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	expired := NewService(repo, "test-secret", -time.Minute)
	resp, err = expired.Login(ctx, LoginRequest{Email: "f@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, resp.Token)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	resp, err = svc.Login(ctx, LoginRequest{Email: "f@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	repo.byID[u.ID].IsBanned = true
	_, err = svc.Authenticate(ctx, resp.Token)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newMockUsers(), "test-secret", time.Hour)
	u := register(t, svc, "b@example.com", identity.RoleBuyer)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, u.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "new-password-1"})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password-1"}))
	_, err = svc.Login(ctx, LoginRequest{Email: "b@example.com", Password: "new-password-1"})
	require.NoError(t, err)
}
