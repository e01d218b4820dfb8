package accountrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/actilink/actilink-api/internal/adapters/postgres"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/accountrepo"
)

// Repo is a Postgres implementation of accountrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (user_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		string(a.UserID),
		normalizeEmail(a.Email),
		a.PasswordHash,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "accounts_email_unique" {
			return accountrepo.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (accountrepo.Account, error) {
	if r.pool == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	var a accountrepo.Account
	var uid string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&uid, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accountrepo.Account{}, accountrepo.ErrNotFound
		}
		return accountrepo.Account{}, err
	}
	a.UserID = domain.UserID(uid)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
