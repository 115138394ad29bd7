// Package carts implements the shopping cart operations.
package carts

import (
	"context"
	stderrors "errors"

	"github.com/nexcart/commerce-core/internal/domain/cart"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Service manages a user's single long-lived cart.
type Service struct {
	store storage.CartStore
	log   *logging.Logger
}

// New constructs a cart service.
func New(store storage.CartStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Get returns the caller's cart, creating it on first access.
func (s *Service) Get(ctx context.Context, userID int64) (cart.Cart, error) {
	c, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return cart.Cart{}, mapStorageError(err, "cart")
	}
	return c, nil
}

// AddItem adds quantity of a product to the caller's cart. Adding a product
// already in the cart increments its quantity instead of duplicating the row.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (cart.Item, error) {
	if productID <= 0 {
		return cart.Item{}, errors.Validation("product_id is required")
	}
	if quantity <= 0 {
		return cart.Item{}, errors.Validation("quantity must be positive")
	}

	item, err := s.store.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return cart.Item{}, mapStorageError(err, "product")
	}

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"product_id": productID,
		"quantity":   item.Quantity,
	}).Info("Cart item added")
	return item, nil
}

// UpdateItemQuantity sets the quantity of an item in the caller's cart.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (cart.Item, error) {
	if quantity <= 0 {
		return cart.Item{}, errors.Validation("quantity must be positive")
	}

	item, err := s.store.UpdateItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return cart.Item{}, mapStorageError(err, "cart item")
	}
	return item, nil
}

// RemoveItem deletes an item from the caller's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if err := s.store.RemoveItem(ctx, userID, itemID); err != nil {
		return mapStorageError(err, "cart item")
	}
	return nil
}

func mapStorageError(err error, resource string) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound(resource)
	case stderrors.Is(err, storage.ErrConflict):
		return errors.Conflict(resource + " conflict")
	default:
		return errors.Internal("cart storage failure", err)
	}
}
