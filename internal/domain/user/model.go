package user

import "time"

// Role is the access tier assigned to a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User is a canonical identity record. An account carries a federated
// external id, a password hash, or both; never neither.
type User struct {
	ID           int64      `json:"id"`
	GoogleID     string     `json:"-"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Federated reports whether the account is linked to an external identity.
func (u User) Federated() bool {
	return u.GoogleID != ""
}

// HasPassword reports whether the account has local credentials.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}
