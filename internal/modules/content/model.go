package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// Entry is one CMS block of the public site, addressed by a dotted key such
// as "home.hero".
type Entry struct {
	Key       string                          `json:"key"                  db:"key"`
	Value     database.JSONB[json.RawMessage] `json:"value"                db:"value"`
	UpdatedBy *uuid.UUID                      `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time                       `json:"updated_at"           db:"updated_at"`
}

type UpsertRequest struct {
	Value json.RawMessage `json:"value"`
}
