package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRefunded
}

// CanTransitionTo reports whether the move from s to next is legal. Orders
// only move forward: pending -> completed -> refunded.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted
	case StatusCompleted:
		return next == StatusRefunded
	default:
		return false
	}
}

// Line is one (product, quantity) pair submitted when creating an order.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Order is an immutable-once-created purchase header. TotalAmount is always
// server-computed from the item snapshots, never client-supplied.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	PaymentRef  string          `json:"-"`
	RefundID    string          `json:"refund_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []Item          `json:"items,omitempty"`
}

// Item snapshots a product at purchase time. UnitPrice is copied from the
// product when the order is created; later price changes never alter it.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}
