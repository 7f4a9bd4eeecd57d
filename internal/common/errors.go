// Package common defines sentinel errors shared by repositories, services and
// transports. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Denials: expected business conditions, reported to callers as a refusal.
	ErrQuotaExceeded     = errors.New("token quota exceeded")
	ErrUnknownKey        = errors.New("unknown key")
	ErrUnknownToken      = errors.New("unknown token")
	ErrInvalidTokenState = errors.New("token is not open for submission")

	// Malformed input.
	ErrInvalidToken         = errors.New("invalid token")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrConstraintViolation  = errors.New("constraint violation")
)

// IsDenial reports whether err is an expected business refusal (quota, unknown
// identifier, closed token, absent data) rather than a fault or bad input.
func IsDenial(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrUnknownKey) ||
		errors.Is(err, ErrUnknownToken) ||
		errors.Is(err, ErrInvalidTokenState) ||
		errors.Is(err, ErrorNotFound)
}
