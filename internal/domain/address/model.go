package address

import "time"

// Address is a user's shipping/billing address. Addresses are hard-deleted;
// at most one address per user is flagged as the default.
type Address struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Line1      string    `json:"address_line1"`
	Line2      string    `json:"address_line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}
