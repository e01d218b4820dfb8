package accountrepo

import (
	"context"
	"time"

	"github.com/actilink/actilink-api/internal/domain"
)

// Account is the credential record of a user. Emails are stored lower-cased.
type Account struct {
	UserID       domain.UserID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Repository interface {
	Create(ctx context.Context, a Account) error
	GetByEmail(ctx context.Context, email string) (Account, error)
}
