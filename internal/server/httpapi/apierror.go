package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
)

// APIError is the error body of a failed request.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, Code: code, Message: message}
}

func badRequest(message string) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message)
}

func internalError() *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// toAPIError maps service errors to HTTP statuses. Denials keep their
// message; storage faults are hidden behind a generic 500.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, common.ErrQuotaExceeded):
		return newAPIError(http.StatusForbidden, "QUOTA_EXCEEDED", err.Error())
	case errors.Is(err, common.ErrUnknownKey):
		return newAPIError(http.StatusNotFound, "UNKNOWN_KEY", err.Error())
	case errors.Is(err, common.ErrUnknownToken), errors.Is(err, common.ErrorNotFound):
		return newAPIError(http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, common.ErrInvalidTokenState):
		return newAPIError(http.StatusConflict, "INVALID_TOKEN_STATE", err.Error())
	case errors.Is(err, common.ErrInvalidToken):
		return newAPIError(http.StatusBadRequest, "INVALID_TOKEN", err.Error())
	case errors.Is(err, common.ErrMissingRequiredField):
		return newAPIError(http.StatusBadRequest, "MISSING_REQUIRED_FIELD", err.Error())
	case errors.Is(err, common.ErrInvalidQuantity):
		return newAPIError(http.StatusBadRequest, "INVALID_QUANTITY", err.Error())
	case errors.Is(err, common.ErrConstraintViolation):
		return newAPIError(http.StatusBadRequest, "CONSTRAINT_VIOLATION", err.Error())
	default:
		return internalError()
	}
}
