// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Role is the account type of a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleFactory Role = "FACTORY"
	RoleBuyer   Role = "BUYER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFactory, RoleBuyer:
		return true
	}
	return false
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func (i Identity) IsAdmin() bool   { return i.Role == RoleAdmin }
func (i Identity) IsFactory() bool { return i.Role == RoleFactory }
func (i Identity) IsBuyer() bool   { return i.Role == RoleBuyer }

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
