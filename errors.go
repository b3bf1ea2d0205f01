package users

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrUnauthorized is the uniform authentication failure. It never carries
// the underlying cause so callers cannot distinguish an unknown identifier
// from a bad secret or a forged token.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode("UNAUTHORIZED")

// ErrTokenExpired is returned when a token is past its leeway-adjusted expiry
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed is returned when a raw token cannot be decoded
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED")

// ErrMismatchedHashAndPassword is the password comparison failure
var ErrMismatchedHashAndPassword = errors.New("credentials do not match", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS")

// ErrNoEmptyString rejects empty secrets before they reach the hasher
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithTextCode("EMPTY_VALUE")

// ErrMissingSigningKey is a fatal configuration error, not a retryable one
var ErrMissingSigningKey = errors.New("signing key is not configured", errors.CategoryInternal).
	WithTextCode("MISSING_SIGNING_KEY")

// wrapStoreError reports any store layer failure as a generic data access
// fault so the caller decides whether to retry. The manager never does.
func wrapStoreError(err error, op string) error {
	return errors.Wrap(err, errors.CategoryInternal, "data access failed").
		WithTextCode("DATA_ACCESS").
		WithMetadata(map[string]any{"op": op})
}

// IsUnauthorizedError reports whether err represents a uniform
// authentication or authorization rejection.
func IsUnauthorizedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryAuth
	}
	return false
}

// IsConflictError reports whether err rejects a duplicate unique identifier.
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryConflict
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token has expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
