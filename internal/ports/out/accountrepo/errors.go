package accountrepo

import "errors"

var (
	// ErrNotFound indicates no account exists for the email.
	ErrNotFound = errors.New("account not found")

	// ErrEmailTaken indicates an account already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
)
