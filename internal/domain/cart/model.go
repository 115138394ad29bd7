package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a user's single long-lived shopping cart. It is created lazily on
// first access and never deleted.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Items     []Item    `json:"items"`
}

// Item is one product line in a cart. At most one row exists per
// (cart, product) pair; repeated adds increment Quantity.
type Item struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`

	// Joined from the product for display; current values, not snapshots.
	ProductName string          `json:"name,omitempty"`
	UnitPrice   decimal.Decimal `json:"price"`
}
