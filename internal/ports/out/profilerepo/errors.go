package profilerepo

import "errors"

var (
	// ErrNotFound indicates no profile exists for the user.
	ErrNotFound = errors.New("profile not found")

	// ErrAlreadyExists indicates a profile already exists for the user.
	ErrAlreadyExists = errors.New("profile already exists")
)
