package addresses

import (
	"context"
	"testing"

	domain "github.com/nexcart/commerce-core/internal/domain/address"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage/memory"
)

func testService() *Service {
	return New(memory.New(), logging.New("test", "error", "json"))
}

func validAddress(userID int64) domain.Address {
	return domain.Address{
		UserID:     userID,
		Line1:      "123 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc := testService()

	tests := []struct {
		name   string
		mutate func(*domain.Address)
	}{
		{"missing line1", func(a *domain.Address) { a.Line1 = " " }},
		{"missing city", func(a *domain.Address) { a.City = "" }},
		{"missing postal code", func(a *domain.Address) { a.PostalCode = "" }},
		{"missing country", func(a *domain.Address) { a.Country = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAddress(1)
			tt.mutate(&a)
			if _, err := svc.Create(context.Background(), a); !errors.HasCode(err, errors.CodeValidation) {
				t.Fatalf("Create() error = %v, want validation", err)
			}
		})
	}
}

func TestService_DefaultAddressIsExclusive(t *testing.T) {
	svc := testService()

	first := validAddress(1)
	first.IsDefault = true
	created, err := svc.Create(context.Background(), first)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if !created.IsDefault {
		t.Fatal("first address should be default")
	}

	second := validAddress(1)
	second.Line1 = "456 Oak Ave"
	second.IsDefault = true
	if _, err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("addresses = %d, want 2", len(list))
	}

	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("default addresses = %d, want 1", defaults)
	}
}

func TestService_OwnerScoping(t *testing.T) {
	svc := testService()

	created, err := svc.Create(context.Background(), validAddress(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), 2, created.ID); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("foreign get error = %v, want not found", err)
	}
	if err := svc.Delete(context.Background(), 2, created.ID); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("foreign delete error = %v, want not found", err)
	}

	if err := svc.Delete(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), 1, created.ID); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("get after delete error = %v, want not found", err)
	}
}

func TestService_Update(t *testing.T) {
	svc := testService()

	created, err := svc.Create(context.Background(), validAddress(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.City = "Shelbyville"
	created.IsDefault = true
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != "Shelbyville" {
		t.Fatalf("city = %q, want Shelbyville", updated.City)
	}
	if !updated.IsDefault {
		t.Fatal("default flag not applied")
	}
}
