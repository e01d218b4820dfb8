package domain

import "time"

// UserProfile is the public profile of a user. It is stored separately from
// the account (credentials) and looked up by user id.
type UserProfile struct {
	UserID UserID
	Name   string
	Age    int
	Bio    string

	CreatedAt time.Time
	UpdatedAt time.Time
}
