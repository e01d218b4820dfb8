package activityrepo

import "errors"

var (
	ErrNotFound = errors.New("activity not found")
)
