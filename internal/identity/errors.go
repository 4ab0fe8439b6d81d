package identity

import "errors"

var (
	// ErrEmailExists is returned by SignUp when the email is already taken.
	ErrEmailExists = errors.New("email already in use")

	// ErrEmailNotFound is returned by SignIn for an unknown email.
	ErrEmailNotFound = errors.New("user with email does not exist")

	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials provided")

	// ErrEmailNotConfirmed is returned when signing in before activation.
	ErrEmailNotConfirmed = errors.New("account is not activated")

	// ErrActivationNotFound is returned when no customer matches the
	// email and activation code pair.
	ErrActivationNotFound = errors.New("account does not exist")

	// ErrAccessDenied is returned for any refresh token mismatch. The
	// reason is deliberately not disclosed.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidToken is returned for malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)
