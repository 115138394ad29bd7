// Package middleware provides HTTP middleware for the commerce API.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nexcart/commerce-core/internal/auth"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/logging"
)

// TokenVerifier checks a compact token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// Authenticator guards routes with bearer-token authentication and
// role checks.
type Authenticator struct {
	verifier TokenVerifier
	logger   *logging.Logger
}

// NewAuthenticator creates an authenticator backed by the given verifier.
func NewAuthenticator(verifier TokenVerifier, logger *logging.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, logger: logger}
}

// Admit validates a raw bearer token and, when roles are given, checks the
// caller's role against them. It carries no HTTP concerns so the decision
// can be tested and reused outside a request cycle.
func (a *Authenticator) Admit(tokenString string, roles ...user.Role) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, errors.Unauthorized("missing authorization token")
	}

	claims, err := a.verifier.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	if len(roles) == 0 {
		return claims, nil
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, nil
		}
	}
	return nil, errors.Forbidden("insufficient role")
}

// Require returns a middleware that admits only callers holding one of the
// given roles. With no roles it admits any authenticated caller.
func (a *Authenticator) Require(roles ...user.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.Admit(BearerToken(r), roles...)
			if err != nil {
				a.respondError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), logging.UserIDKey, strconv.FormatInt(claims.UserID, 10))
			ctx = context.WithValue(ctx, logging.RoleKey, claims.Role)
			ctx = withClaims(ctx, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authenticator) respondError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := errors.GetServiceError(err)
	if svcErr == nil {
		svcErr = errors.Internal("authentication failed", err)
	}

	a.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": svcErr.HTTPStatus,
	}).Warn("Request rejected by access gate")

	httputil.WriteErrorResponse(w, r, svcErr.HTTPStatus, string(svcErr.Code), svcErr.Message, svcErr.Details)
}

// BearerToken extracts the bearer token from the Authorization header, or
// from the "token" query parameter as a fallback for websocket handshakes.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

type claimsKey struct{}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the verified claims stored by Require, if any.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// UserIDFrom returns the authenticated user's id, or zero when the request
// was not admitted.
func UserIDFrom(ctx context.Context) int64 {
	if claims, ok := ClaimsFrom(ctx); ok {
		return claims.UserID
	}
	return 0
}

// RoleFrom returns the authenticated user's role, or the empty role.
func RoleFrom(ctx context.Context) user.Role {
	if claims, ok := ClaimsFrom(ctx); ok {
		return user.Role(claims.Role)
	}
	return ""
}
