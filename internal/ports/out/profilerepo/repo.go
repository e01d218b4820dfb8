package profilerepo

import (
	"context"

	"github.com/actilink/actilink-api/internal/domain"
)

// Repository provides access to persisted user profiles, keyed by user id.
type Repository interface {
	Create(ctx context.Context, p domain.UserProfile) error
	Update(ctx context.Context, p domain.UserProfile) error
	Get(ctx context.Context, id domain.UserID) (domain.UserProfile, error)
}
