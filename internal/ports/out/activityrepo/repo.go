package activityrepo

import (
	"context"
	"time"

	"github.com/actilink/actilink-api/internal/domain"
)

// Activity is the persistence shape used by the activity repository.
// It is not an HTTP DTO.
type Activity struct {
	domain.Activity

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted activities.
//
// Result ordering expectations:
// - List methods return activities in store order: CreatedAt ascending, ties broken by
//   insertion order where the adapter tracks it, then by ID.
type Repository interface {
	List(ctx context.Context) ([]Activity, error)
	GetByID(ctx context.Context, id domain.ActivityID) (Activity, error)

	// Set writes the full record, inserting it when absent (document "set" semantics).
	// When the record exists its CreatedAt is kept.
	Set(ctx context.Context, a Activity) error

	// Delete removes the record. ErrNotFound is returned when it does not exist.
	Delete(ctx context.Context, id domain.ActivityID) error

	// Join and Leave are the membership transaction: an atomic conditional
	// read-modify-write of the participant set. Joining a present member and
	// leaving an absent one succeed without writing.
	Join(ctx context.Context, id domain.ActivityID, user domain.UserID) error
	Leave(ctx context.Context, id domain.ActivityID, user domain.UserID) error

	// ListByParticipant returns the activities whose participant set contains user.
	ListByParticipant(ctx context.Context, user domain.UserID) ([]Activity, error)
}
