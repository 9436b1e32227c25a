package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusDisputed   OrderStatus = "DISPUTED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Order is a purchase of a factory's goods by a buyer, placed directly from a
// product or created by awarding an RFQ quote.
type Order struct {
	ID              uuid.UUID   `json:"id"                   db:"id"`
	OrderNumber     string      `json:"order_number"         db:"order_number"`
	BuyerID         uuid.UUID   `json:"buyer_id"             db:"buyer_id"`
	FactoryID       uuid.UUID   `json:"factory_id"           db:"factory_id"`
	ProductID       *uuid.UUID  `json:"product_id,omitempty" db:"product_id"`
	RFQID           *uuid.UUID  `json:"rfq_id,omitempty"     db:"rfq_id"`
	QuoteID         *uuid.UUID  `json:"quote_id,omitempty"   db:"quote_id"`
	Quantity        int         `json:"quantity"             db:"quantity"`
	UnitPrice       float64     `json:"unit_price"           db:"unit_price"`
	TotalAmount     float64     `json:"total_amount"         db:"total_amount"`
	Currency        string      `json:"currency"             db:"currency"`
	Status          OrderStatus `json:"status"               db:"status"`
	ShippingAddress string      `json:"shipping_address"     db:"shipping_address"`
	Notes           string      `json:"notes"                db:"notes"`
	TrackingNumber  string      `json:"tracking_number"      db:"tracking_number"`
	CreatedAt       time.Time   `json:"created_at"           db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"           db:"updated_at"`
}

// ListFilter narrows order listings. Nil ids are not filtered on.
type ListFilter struct {
	BuyerID   *uuid.UUID
	FactoryID *uuid.UUID
	Status    OrderStatus
	Limit     int
	Offset    int
}

// PlaceOrderRequest is the payload for ordering a product directly.
type PlaceOrderRequest struct {
	ProductID       uuid.UUID `json:"product_id"       validate:"required"`
	Quantity        int       `json:"quantity"         validate:"gte=1"`
	ShippingAddress string    `json:"shipping_address" validate:"max=1000"`
	Notes           string    `json:"notes"            validate:"max=2000"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status         string `json:"status"          validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
}
