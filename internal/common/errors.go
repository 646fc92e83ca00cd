package common

import "errors"

// Callers should match these values with errors.Is; lower layers wrap them
// with fmt.Errorf("...: %w", err).
var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Request taxonomy. Each maps to one HTTP status at the API boundary.
	ErrorValidation    = errors.New("validation error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorConfiguration = errors.New("configuration error")
	ErrorStorage       = errors.New("storage error")
	ErrorInternal      = errors.New("internal error")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
