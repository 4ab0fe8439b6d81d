package graph

import (
	"errors"

	"github.com/feldgrau/accountd/internal/customers"
	"github.com/feldgrau/accountd/internal/identity"
)

// Error codes surfaced in the extensions.code field of GraphQL errors.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL"
)

// apiError carries a stable error code alongside the message. The GraphQL
// library picks Extensions up when formatting resolver errors.
type apiError struct {
	message string
	code    string
}

func (e *apiError) Error() string { return e.message }

func (e *apiError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func newAPIError(code, message string) *apiError {
	return &apiError{message: message, code: code}
}

var errUnauthenticated = newAPIError(CodeUnauthorized, "authentication required")

// translate maps domain errors onto API errors. Unrecognized errors become
// an opaque internal error so no storage detail leaks to clients.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var api *apiError
	if errors.As(err, &api) {
		return api
	}

	switch {
	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, customers.ErrInvalidInput),
		errors.Is(err, identity.ErrEmailNotFound):
		return newAPIError(CodeBadRequest, err.Error())
	case errors.Is(err, identity.ErrEmailExists),
		errors.Is(err, customers.ErrEmailExists):
		return newAPIError(CodeConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrEmailNotConfirmed),
		errors.Is(err, identity.ErrActivationNotFound),
		errors.Is(err, identity.ErrInvalidToken):
		return newAPIError(CodeUnauthorized, err.Error())
	case errors.Is(err, identity.ErrAccessDenied):
		return newAPIError(CodeForbidden, err.Error())
	case errors.Is(err, customers.ErrCustomerNotFound):
		return newAPIError(CodeNotFound, err.Error())
	}

	return newAPIError(CodeInternal, "internal error")
}
