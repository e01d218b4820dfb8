package accounts

import (
	"time"

	"github.com/actilink/actilink-api/internal/domain"
)

type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Name     string `validate:"required"`
	Age      int    `validate:"gte=0,lte=150"`
	Bio      string `validate:"max=1000"`
}

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Result is the outcome of Register or Login. Authentication failures are
// reported with Success=false and a user-facing Message, not as errors.
type Result struct {
	Success   bool
	Message   string
	Code      string
	UserID    domain.UserID
	Token     string
	ExpiresAt time.Time
}

// Result codes for unsuccessful attempts.
const (
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)
