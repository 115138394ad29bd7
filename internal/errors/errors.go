// Package errors defines the typed error taxonomy shared by all services.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure to API clients.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeMissingToken      ErrorCode = "MISSING_TOKEN"
	CodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidCredential ErrorCode = "INVALID_CREDENTIALS"
	CodeFederatedOnly     ErrorCode = "FEDERATED_ONLY"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeRateLimited       ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeDependency        ErrorCode = "DEPENDENCY_ERROR"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error with a stable code and HTTP mapping. Messages and
// details must never include credentials, password material or raw tokens.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails returns a copy of e carrying an extra detail pair.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

func newError(code ErrorCode, status int, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		cause:      cause,
	}
}

// Validation reports malformed or missing input.
func Validation(message string) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, message, nil)
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(message string) *ServiceError {
	return newError(CodeMissingToken, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a token rejected by signature or shape checks.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid token", cause)
}

// TokenExpired reports a token past its expiry, distinct from a tampered one.
func TokenExpired() *ServiceError {
	return newError(CodeTokenExpired, http.StatusUnauthorized, "token expired", nil)
}

// InvalidCredentials reports a failed email/password login.
func InvalidCredentials() *ServiceError {
	return newError(CodeInvalidCredential, http.StatusUnauthorized, "invalid credentials", nil)
}

// FederatedOnly reports a password login against a federated-only account.
func FederatedOnly() *ServiceError {
	return newError(CodeFederatedOnly, http.StatusUnauthorized, "account uses federated sign-in", nil)
}

// Forbidden reports an authenticated caller lacking a required role.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports an absent resource. Callers deliberately use the same
// error for resources owned by someone else.
func NotFound(resource string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found", nil)
}

// Conflict reports a uniqueness or state-transition violation.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

// RateLimitExceeded reports request throttling.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil)
	e.Details = map[string]interface{}{"limit": limit, "window": window}
	return e
}

// Dependency reports a store or external gateway failure.
func Dependency(message string, cause error) *ServiceError {
	return newError(CodeDependency, http.StatusInternalServerError, message, cause)
}

// Internal reports an unclassified server-side failure.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, cause)
}

// GetServiceError extracts a *ServiceError from err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	svcErr := GetServiceError(err)
	return svcErr != nil && svcErr.Code == code
}
