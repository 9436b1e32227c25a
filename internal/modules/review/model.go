package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is a buyer's rating of a factory for one delivered order.
type Review struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	OrderID     uuid.UUID `json:"order_id"     db:"order_id"`
	OrderNumber string    `json:"order_number" db:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"     db:"buyer_id"`
	BuyerName   string    `json:"buyer_name"   db:"buyer_name"`
	FactoryID   uuid.UUID `json:"factory_id"   db:"factory_id"`
	Rating      int       `json:"rating"       db:"rating"`
	Comment     string    `json:"comment"      db:"comment"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// Summary aggregates the reviews of one factory.
type Summary struct {
	FactoryID     uuid.UUID `json:"factory_id"     db:"factory_id"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	ReviewCount   int       `json:"review_count"   db:"review_count"`
	Reviews       []Review  `json:"reviews"        db:"-"`
}

// ListFilter narrows the moderation listing.
type ListFilter struct {
	FactoryID *uuid.UUID
	MaxRating int
	Limit     int
	Offset    int
}

type CreateRequest struct {
	Rating  int    `json:"rating"  validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}
