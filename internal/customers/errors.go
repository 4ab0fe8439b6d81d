package customers

import "errors"

var (
	// ErrCustomerNotFound is returned when no live customer matches the lookup.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrEmailExists is returned when a live customer already owns the email.
	ErrEmailExists = errors.New("email already registered")

	// ErrCodeExists is returned when a live customer already holds the
	// activation code.
	ErrCodeExists = errors.New("activation code already in use")

	// ErrInvalidInput is returned when request arguments fail validation.
	ErrInvalidInput = errors.New("invalid input")
)
