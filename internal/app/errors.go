package app

import "errors"

// Sentinel errors surfaced to the HTTP layer as user-visible flashes.
var (
	ErrMissingFields      = errors.New("username, email and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
