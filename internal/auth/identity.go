package auth

import (
	"context"
	stderrors "errors"

	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Assertion is a verified claim from an external identity provider binding a
// stable external id to an email and display name.
type Assertion struct {
	ExternalID string
	Email      string
	Name       string
}

// Resolver turns credentials into canonical user records.
type Resolver struct {
	users  storage.UserStore
	hasher PasswordHasher
	log    *logging.Logger
}

// NewResolver creates a resolver over the given user store.
func NewResolver(users storage.UserStore, hasher PasswordHasher, log *logging.Logger) *Resolver {
	return &Resolver{users: users, hasher: hasher, log: log}
}

// ResolveFederated maps a federated assertion to a user, creating a customer
// account on first sign-in. An existing account is returned unchanged: email
// or name drift at the provider is deliberately not applied, so a provider
// profile edit can never silently rewrite a local identity.
func (r *Resolver) ResolveFederated(ctx context.Context, assertion Assertion) (user.User, error) {
	if assertion.ExternalID == "" || assertion.Email == "" {
		return user.User{}, errors.Validation("identity assertion is missing external id or email")
	}

	existing, err := r.users.GetByGoogleID(ctx, assertion.ExternalID)
	if err == nil {
		if err := r.users.TouchLastLogin(ctx, existing.ID); err != nil {
			return user.User{}, errors.Dependency("update last login", err)
		}
		return existing, nil
	}
	if !stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, errors.Dependency("look up federated identity", err)
	}

	created, err := r.users.UpsertFederated(ctx, user.User{
		GoogleID: assertion.ExternalID,
		Email:    assertion.Email,
		Name:     assertion.Name,
		Role:     user.RoleCustomer,
	})
	if err != nil {
		if stderrors.Is(err, storage.ErrConflict) {
			// The email is already registered to a different account; linking
			// accounts is out of scope, so surface the collision.
			return user.User{}, errors.Conflict("email already registered")
		}
		return user.User{}, errors.Dependency("create federated user", err)
	}

	r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"user_id": created.ID,
	}).Info("created user from federated sign-in")
	return created, nil
}

// ResolveLocal authenticates an email/password pair. The three failure modes
// (unknown email, federated-only account, wrong password) are distinct error
// codes; the HTTP layer maps all of them to 401.
func (r *Resolver) ResolveLocal(ctx context.Context, email, password string) (user.User, error) {
	if email == "" || password == "" {
		return user.User{}, errors.Validation("email and password are required")
	}

	u, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return user.User{}, errors.NotFound("user")
		}
		return user.User{}, errors.Dependency("look up user", err)
	}

	if !u.HasPassword() {
		return user.User{}, errors.FederatedOnly()
	}

	if err := r.hasher.Compare(u.PasswordHash, password); err != nil {
		return user.User{}, errors.InvalidCredentials()
	}

	if err := r.users.TouchLastLogin(ctx, u.ID); err != nil {
		return user.User{}, errors.Dependency("update last login", err)
	}
	return u, nil
}

// Register creates a local customer account. A duplicate email yields a
// conflict without creating a row.
func (r *Resolver) Register(ctx context.Context, name, email, password string) (user.User, error) {
	if name == "" || email == "" || password == "" {
		return user.User{}, errors.Validation("name, email and password are required")
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return user.User{}, errors.Internal("hash password", err)
	}

	created, err := r.users.Create(ctx, user.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
	})
	if err != nil {
		if stderrors.Is(err, storage.ErrConflict) {
			return user.User{}, errors.Conflict("email already registered")
		}
		return user.User{}, errors.Dependency("create user", err)
	}

	r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"user_id": created.ID,
	}).Info("registered user")
	return created, nil
}
