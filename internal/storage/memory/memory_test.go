package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/storage"
)

func TestStore_UserSentinels(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.Create(ctx, user.User{Email: "ada@example.com", Name: "Ada", Role: user.RoleCustomer})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = store.Create(ctx, user.User{Email: "ada@example.com", Name: "Copy", Role: user.RoleCustomer})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByGoogleID(ctx, "goog-absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpsertFederatedIsIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.UpsertFederated(ctx, user.User{GoogleID: "goog-1", Email: "g@example.com", Name: "G", Role: user.RoleCustomer})
	require.NoError(t, err)

	second, err := store.UpsertFederated(ctx, user.User{GoogleID: "goog-1", Email: "other@example.com", Name: "Other", Role: user.RoleCustomer})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "g@example.com", second.Email)
}

func TestStore_CartIsolationBetweenUsers(t *testing.T) {
	store := New()
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, catalog.Product{Name: "Mug", Price: decimal.RequireFromString("10.00"), Active: true})
	require.NoError(t, err)

	item, err := store.AddItem(ctx, 1, p.ID, 2)
	require.NoError(t, err)

	// A different user cannot see or touch the item.
	_, err = store.UpdateItemQuantity(ctx, 2, item.ID, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.RemoveItem(ctx, 2, item.ID), storage.ErrNotFound)

	other, err := store.GetOrCreate(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestStore_OrderScopingAndTransitions(t *testing.T) {
	store := New()
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, catalog.Product{Name: "Mug", Price: decimal.RequireFromString("10.00"), Active: true})
	require.NoError(t, err)

	o, err := store.CreateOrder(ctx, 1, []order.Line{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("30.00")))

	_, err = store.GetOrder(ctx, 2, o.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Transition(ctx, 1, o.ID, order.StatusCompleted, order.StatusRefunded)
	assert.ErrorIs(t, err, storage.ErrConflict)

	done, err := store.Transition(ctx, 1, o.ID, order.StatusCompleted, order.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, done.Status)

	// Refund refuses until a payment reference exists on the processor side;
	// the store only guards status here.
	refunded, err := store.SetRefunded(ctx, 1, o.ID, "re_1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusRefunded, refunded.Status)
	assert.Equal(t, "re_1", refunded.RefundID)

	_, err = store.SetRefunded(ctx, 1, o.ID, "re_2")
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_DeleteCategoryInUse(t *testing.T) {
	store := New()
	ctx := context.Background()

	c, err := store.CreateCategory(ctx, catalog.Category{Name: "Drinkware"})
	require.NoError(t, err)

	_, err = store.CreateProduct(ctx, catalog.Product{Name: "Mug", Price: decimal.RequireFromString("10.00"), CategoryID: &c.ID, Active: true})
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteCategory(ctx, c.ID), storage.ErrConflict)
}
