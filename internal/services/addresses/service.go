// Package addresses implements user address book management.
package addresses

import (
	"context"
	stderrors "errors"
	"strings"

	domain "github.com/nexcart/commerce-core/internal/domain/address"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Service manages a user's addresses.
type Service struct {
	store storage.AddressStore
	log   *logging.Logger
}

// New constructs an address service.
func New(store storage.AddressStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Create adds an address to the caller's address book. Flagging it as the
// default clears the previous default.
func (s *Service) Create(ctx context.Context, a domain.Address) (domain.Address, error) {
	if err := validate(a); err != nil {
		return domain.Address{}, err
	}

	created, err := s.store.CreateAddress(ctx, a)
	if err != nil {
		return domain.Address{}, mapStorageError(err)
	}

	s.log.WithContext(ctx).WithField("address_id", created.ID).Info("Address created")
	return created, nil
}

// Get returns one of the caller's addresses.
func (s *Service) Get(ctx context.Context, userID, id int64) (domain.Address, error) {
	a, err := s.store.GetAddress(ctx, userID, id)
	if err != nil {
		return domain.Address{}, mapStorageError(err)
	}
	return a, nil
}

// List returns the caller's addresses.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Address, error) {
	list, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return list, nil
}

// Update replaces one of the caller's addresses.
func (s *Service) Update(ctx context.Context, a domain.Address) (domain.Address, error) {
	if err := validate(a); err != nil {
		return domain.Address{}, err
	}

	updated, err := s.store.UpdateAddress(ctx, a)
	if err != nil {
		return domain.Address{}, mapStorageError(err)
	}
	return updated, nil
}

// Delete removes one of the caller's addresses.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteAddress(ctx, userID, id); err != nil {
		return mapStorageError(err)
	}
	return nil
}

func validate(a domain.Address) error {
	if strings.TrimSpace(a.Line1) == "" {
		return errors.Validation("address_line1 is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return errors.Validation("city is required")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return errors.Validation("postal_code is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		return errors.Validation("country is required")
	}
	return nil
}

func mapStorageError(err error) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound("address")
	case stderrors.Is(err, storage.ErrConflict):
		return errors.Conflict("address conflict")
	default:
		return errors.Internal("address storage failure", err)
	}
}
