// Package catalog implements product and category management.
package catalog

import (
	"context"
	stderrors "errors"
	"strings"

	domain "github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Service manages the product catalog.
type Service struct {
	store storage.CatalogStore
	log   *logging.Logger
}

// New constructs a catalog service.
func New(store storage.CatalogStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateProduct registers a new sellable product.
func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Product{}, errors.Validation("name is required")
	}
	if p.Price.IsNegative() {
		return domain.Product{}, errors.Validation("price cannot be negative")
	}
	p.Active = true

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, mapStorageError(err, "category")
	}

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"product_id": created.ID,
		"name":       created.Name,
	}).Info("Product created")
	return created, nil
}

// GetProduct returns one product, active or not.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, mapStorageError(err, "product")
	}
	return p, nil
}

// ListProducts returns the catalog. Inactive products are included only
// when requested, which the API reserves for admins.
func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	list, err := s.store.ListProducts(ctx, includeInactive)
	if err != nil {
		return nil, mapStorageError(err, "product")
	}
	return list, nil
}

// UpdateProduct applies a partial update; nil patch fields are untouched.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return domain.Product{}, errors.Validation("name cannot be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return domain.Product{}, errors.Validation("price cannot be negative")
	}

	p, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return domain.Product{}, mapStorageError(err, "product")
	}

	s.log.WithContext(ctx).WithField("product_id", p.ID).Info("Product updated")
	return p, nil
}

// DeactivateProduct retires a product from sale. The row survives so
// historical order items keep their reference.
func (s *Service) DeactivateProduct(ctx context.Context, id int64) error {
	if err := s.store.DeactivateProduct(ctx, id); err != nil {
		return mapStorageError(err, "product")
	}
	s.log.WithContext(ctx).WithField("product_id", id).Info("Product deactivated")
	return nil
}

// CreateCategory registers a new category, optionally under a parent.
func (s *Service) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Category{}, errors.Validation("name is required")
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return domain.Category{}, mapStorageError(err, "parent category")
	}
	return created, nil
}

// GetCategory returns a single category.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, mapStorageError(err, "category")
	}
	return c, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	list, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, mapStorageError(err, "category")
	}
	return list, nil
}

// UpdateCategory replaces a category's mutable fields.
func (s *Service) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Category{}, errors.Validation("name is required")
	}

	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return domain.Category{}, mapStorageError(err, "category")
	}
	return updated, nil
}

// DeleteCategory removes a category. Categories still referenced by
// products or child categories are rejected.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return mapStorageError(err, "category")
	}
	s.log.WithContext(ctx).WithField("category_id", id).Info("Category deleted")
	return nil
}

func mapStorageError(err error, resource string) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound(resource)
	case stderrors.Is(err, storage.ErrConflict):
		return errors.Conflict(resource + " is still referenced")
	default:
		return errors.Internal("catalog storage failure", err)
	}
}
