package buyer

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the company record attached to a BUYER account.
type Profile struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	UserID      uuid.UUID `json:"user_id"      db:"user_id"`
	CompanyName string    `json:"company_name" db:"company_name"`
	Country     string    `json:"country"      db:"country"`
	City        string    `json:"city"         db:"city"`
	Industry    string    `json:"industry"     db:"industry"`
	Phone       string    `json:"phone"        db:"phone"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

type UpdateProfileRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	Country     string `json:"country"      validate:"max=100"`
	City        string `json:"city"         validate:"max=100"`
	Industry    string `json:"industry"     validate:"max=100"`
	Phone       string `json:"phone"        validate:"max=32"`
}
