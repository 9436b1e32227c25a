package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// User is an account of any role.
type User struct {
	ID           uuid.UUID     `json:"id"         db:"id"`
	Email        string        `json:"email"      db:"email"`
	PasswordHash string        `json:"-"          db:"password_hash"`
	Name         string        `json:"name"       db:"name"`
	Phone        string        `json:"phone"      db:"phone"`
	Role         identity.Role `json:"role"       db:"role"`
	IsBanned     bool          `json:"is_banned"  db:"is_banned"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// Identity returns the request identity of u.
func (u *User) Identity() identity.Identity {
	return identity.Identity{UserID: u.ID, Role: u.Role}
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role   identity.Role
	Search string
	Banned *bool
	Limit  int
	Offset int
}
