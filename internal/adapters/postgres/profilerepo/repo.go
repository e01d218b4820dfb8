package profilerepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/actilink/actilink-api/internal/adapters/postgres"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p domain.UserProfile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if p.UserID == "" {
		return errors.New("empty user id")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, name, age, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		string(p.UserID),
		p.Name,
		p.Age,
		p.Bio,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return profilerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p domain.UserProfile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET name = $2,
		    age = $3,
		    bio = $4,
		    updated_at = $5
		WHERE user_id = $1
	`,
		string(p.UserID),
		p.Name,
		p.Age,
		p.Bio,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return profilerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.UserID) (domain.UserProfile, error) {
	if r.pool == nil {
		return domain.UserProfile{}, errors.New("nil postgres pool")
	}
	var p domain.UserProfile
	var uid string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, name, age, bio, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, string(id)).Scan(&uid, &p.Name, &p.Age, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, profilerepo.ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	p.UserID = domain.UserID(uid)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
