// Package auth implements identity resolution and bearer-token issuance for
// the commerce backend.
package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/errors"
)

// Tier selects the token lifetime for an issuance path. Password logins get
// short-lived tokens; federated sign-ins are trusted longer.
type Tier int

const (
	TierPassword Tier = iota
	TierFederated
)

const (
	defaultPasswordTTL  = time.Hour
	defaultFederatedTTL = 24 * time.Hour
)

// Claims is the canonical signed claim set. Both issuance paths produce this
// one shape, and Verify accepts no other.
type Claims struct {
	UserID int64     `json:"id"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens. The signing secret is fixed at
// construction and never rotated at runtime.
type Issuer struct {
	secret       []byte
	passwordTTL  time.Duration
	federatedTTL time.Duration
	now          func() time.Time
}

// IssuerOption customises an Issuer.
type IssuerOption func(*Issuer)

// WithTTLs overrides the per-tier token lifetimes.
func WithTTLs(password, federated time.Duration) IssuerOption {
	return func(i *Issuer) {
		if password > 0 {
			i.passwordTTL = password
		}
		if federated > 0 {
			i.federatedTTL = federated
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates a token issuer with the given HMAC signing secret.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token signing secret is required")
	}

	issuer := &Issuer{
		secret:       secret,
		passwordTTL:  defaultPasswordTTL,
		federatedTTL: defaultFederatedTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Issue signs a token for u with the lifetime of the given tier.
func (i *Issuer) Issue(u user.User, tier Tier) (string, error) {
	ttl := i.passwordTTL
	if tier == TierFederated {
		ttl = i.federatedTTL
	}

	now := i.now()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the claims. Failures are
// exactly two: an expired token, or a malformed/tampered one.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.InvalidToken(nil)
	}
	return claims, nil
}
