package carts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage/memory"
)

func testLogger() *logging.Logger {
	return logging.New("test", "error", "json")
}

func seedProduct(t *testing.T, store *memory.Store, name string, price string) catalog.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), catalog.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestService_AddItem_MergesDuplicates(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "widget", "9.99")
	svc := New(store, testLogger())

	item, err := svc.AddItem(context.Background(), 1, product.ID, 2)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("quantity after first add = %d, want 2", item.Quantity)
	}

	item, err = svc.AddItem(context.Background(), 1, product.ID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("quantity after second add = %d, want 5", item.Quantity)
	}

	c, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("cart rows = %d, want 1", len(c.Items))
	}
	if c.Items[0].Quantity != 5 {
		t.Fatalf("cart quantity = %d, want 5", c.Items[0].Quantity)
	}
}

func TestService_AddItem_Validation(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "widget", "9.99")
	svc := New(store, testLogger())

	tests := []struct {
		name      string
		productID int64
		quantity  int
		wantCode  errors.ErrorCode
	}{
		{"zero quantity", product.ID, 0, errors.CodeValidation},
		{"negative quantity", product.ID, -1, errors.CodeValidation},
		{"missing product id", 0, 1, errors.CodeValidation},
		{"unknown product", 9999, 1, errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), 1, tt.productID, tt.quantity)
			if !errors.HasCode(err, tt.wantCode) {
				t.Fatalf("AddItem() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestService_AddItem_InactiveProduct(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "retired", "4.50")
	if err := store.DeactivateProduct(context.Background(), product.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	svc := New(store, testLogger())

	_, err := svc.AddItem(context.Background(), 1, product.ID, 1)
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("AddItem() error = %v, want not found", err)
	}
}

func TestService_Get_CreatesCartOnFirstAccess(t *testing.T) {
	store := memory.New()
	svc := New(store, testLogger())

	first, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.UserID != 7 {
		t.Fatalf("cart user = %d, want 7", first.UserID)
	}
	if len(first.Items) != 0 {
		t.Fatalf("new cart should be empty, got %d items", len(first.Items))
	}

	second, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("cart id changed between accesses: %d then %d", first.ID, second.ID)
	}
}

func TestService_UpdateItemQuantity(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "widget", "9.99")
	svc := New(store, testLogger())

	item, err := svc.AddItem(context.Background(), 1, product.ID, 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := svc.UpdateItemQuantity(context.Background(), 1, item.ID, 9)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 9 {
		t.Fatalf("quantity = %d, want 9", updated.Quantity)
	}

	if _, err := svc.UpdateItemQuantity(context.Background(), 1, item.ID, 0); !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("zero quantity error = %v, want validation", err)
	}

	// Another user cannot touch the item, and cannot learn it exists.
	_, err = svc.UpdateItemQuantity(context.Background(), 2, item.ID, 3)
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("foreign update error = %v, want not found", err)
	}
}

func TestService_RemoveItem(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "widget", "9.99")
	svc := New(store, testLogger())

	item, err := svc.AddItem(context.Background(), 1, product.ID, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.RemoveItem(context.Background(), 2, item.ID); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("foreign remove error = %v, want not found", err)
	}

	if err := svc.RemoveItem(context.Background(), 1, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	c, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("cart rows after remove = %d, want 0", len(c.Items))
	}

	if err := svc.RemoveItem(context.Background(), 1, item.ID); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("double remove error = %v, want not found", err)
	}
}
