package admin

import "time"

// Analytics is the platform overview shown on the admin dashboard.
type Analytics struct {
	UsersByRole       map[string]int     `json:"users_by_role"`
	BannedUsers       int                `json:"banned_users"`
	FactoriesByStatus map[string]int     `json:"factories_by_status"`
	PendingChanges    int                `json:"pending_profile_changes"`
	ActiveProducts    int                `json:"active_products"`
	RFQsByStatus      map[string]int     `json:"rfqs_by_status"`
	OrdersByStatus    map[string]int     `json:"orders_by_status"`
	GMV               map[string]float64 `json:"gmv"` // DELIVERED order totals per currency
	OpenDisputes      int                `json:"open_disputes"`
	Reviews           int                `json:"reviews"`
	AverageRating     float64            `json:"average_rating"`
	PaymentsByStatus  map[string]int     `json:"payments_by_status"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// DailyOrders is one day of order activity.
type DailyOrders struct {
	Day    time.Time `json:"day"    db:"day"`
	Orders int       `json:"orders" db:"orders"`
	Amount float64   `json:"amount" db:"amount"`
}

// bucket is a grouped count row.
type bucket struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}
