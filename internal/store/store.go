package store

import (
	"errors"

	"chatterbox/pkg/domain"
)

// ErrDuplicateUser is returned when a username or email is already taken.
// The store enforces uniqueness itself, so concurrent registrations that
// both pass the advisory existence check still cannot create duplicates.
var ErrDuplicateUser = errors.New("store: username or email already registered")

// UserStore defines persistence operations for user records.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicateUser when the
	// username or email collides with an existing record.
	CreateUser(domain.User) error
	// HasUser reports whether any user matches the username or the email.
	HasUser(username, email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
}
