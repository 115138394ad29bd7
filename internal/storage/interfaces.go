// Package storage defines the persistence contracts for the commerce domain.
package storage

import (
	"context"
	"errors"

	"github.com/nexcart/commerce-core/internal/domain/address"
	"github.com/nexcart/commerce-core/internal/domain/cart"
	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/domain/user"
)

// ErrNotFound is returned for absent rows, and deliberately also for rows
// owned by a different user so callers cannot distinguish the two.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned for uniqueness violations and illegal state
// transitions.
var ErrConflict = errors.New("conflict")

// UserStore persists identity records.
type UserStore interface {
	// Create inserts a local-credential user. A duplicate email yields
	// ErrConflict.
	Create(ctx context.Context, u user.User) (user.User, error)
	// UpsertFederated inserts a federated user, or returns the existing row
	// when the external id is already linked. Safe under concurrent first
	// logins of the same identity.
	UpsertFederated(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (user.User, error)
	// TouchLastLogin stamps the user's last-login time.
	TouchLastLogin(ctx context.Context, id int64) error
}

// CatalogStore persists products and categories.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	ListProducts(ctx context.Context, includeInactive bool) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error)
	// DeactivateProduct soft-deletes: the product stays referenceable from
	// historical order items.
	DeactivateProduct(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	GetCategory(ctx context.Context, id int64) (catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	// DeleteCategory hard-deletes. A category still referenced by products or
	// child categories yields ErrConflict.
	DeleteCategory(ctx context.Context, id int64) error
}

// CartStore persists carts and cart items.
type CartStore interface {
	// GetOrCreate returns the user's cart with items, creating an empty cart
	// on first access. Concurrent first accesses converge on one row.
	GetOrCreate(ctx context.Context, userID int64) (cart.Cart, error)
	// AddItem upserts a (cart, product) row atomically: an existing row has
	// its quantity incremented, otherwise a new row is inserted. An unknown
	// or inactive product yields ErrNotFound.
	AddItem(ctx context.Context, userID, productID int64, quantity int) (cart.Item, error)
	// UpdateItemQuantity sets the quantity of an item in the user's own cart.
	UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (cart.Item, error)
	// RemoveItem deletes an item from the user's own cart.
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

// OrderStore persists orders and their item snapshots.
type OrderStore interface {
	// CreateOrder runs the whole order pipeline in one transaction: header
	// insert, per-line price lookup and item snapshot insert, total update,
	// and re-read. Any unresolvable product aborts the whole order with
	// ErrNotFound; no partial rows survive an error.
	CreateOrder(ctx context.Context, userID int64, lines []order.Line) (order.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (order.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]order.Order, error)
	// Transition moves the order to next if its current status is in
	// allowedFrom; otherwise ErrConflict. Owner-scoped: a foreign or absent
	// order yields ErrNotFound.
	Transition(ctx context.Context, userID, orderID int64, next order.Status, allowedFrom ...order.Status) (order.Order, error)
	// SetRefunded records the gateway refund id and flips the status to
	// refunded in one write. Requires current status completed.
	SetRefunded(ctx context.Context, userID, orderID int64, refundID string) (order.Order, error)
}

// AddressStore persists user addresses.
type AddressStore interface {
	// CreateAddress inserts an address; when IsDefault is set, the user's
	// previous default is cleared in the same transaction.
	CreateAddress(ctx context.Context, a address.Address) (address.Address, error)
	GetAddress(ctx context.Context, userID, id int64) (address.Address, error)
	ListAddresses(ctx context.Context, userID int64) ([]address.Address, error)
	UpdateAddress(ctx context.Context, a address.Address) (address.Address, error)
	DeleteAddress(ctx context.Context, userID, id int64) error
}

// Store bundles every aggregate contract; the postgres and memory
// implementations satisfy all of them on one value.
type Store interface {
	UserStore
	CatalogStore
	CartStore
	OrderStore
	AddressStore
}
