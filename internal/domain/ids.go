package domain

// UserID is the authenticated subject (token `sub`) and the key of a user profile.
// We model it as an opaque identifier.
type UserID string

// ActivityID is an identifier for an activity record. It is generated by whoever
// creates the record (server or client) and never reassigned.
type ActivityID string
