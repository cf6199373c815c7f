package types

import "errors"

var (
	// ErrInvalidCredentials is the single rejection for a failed login. It
	// does not distinguish an unknown user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already registered")

	// ErrPublicKeyTaken is returned when a public key hash is already bound
	// to another account.
	ErrPublicKeyTaken = errors.New("public key already registered")

	// ErrNotFound is returned by lookups that find nothing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPayload is returned for structurally invalid requests.
	ErrInvalidPayload = errors.New("invalid payload")
)
