package activityrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/activityrepo"
)

// Repo is a Postgres implementation of activityrepo.Repository.
// Participants live in a TEXT[] column; membership changes lock the row.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	id, title, category, date, start_time, end_time, location, creator_id,
	participants, latitude, longitude, created_at, updated_at`

func (r *Repo) List(ctx context.Context) ([]activityrepo.Activity, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM activities ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) GetByID(ctx context.Context, id domain.ActivityID) (activityrepo.Activity, error) {
	if r.pool == nil {
		return activityrepo.Activity{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM activities WHERE id = $1`, string(id))
	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return activityrepo.Activity{}, activityrepo.ErrNotFound
		}
		return activityrepo.Activity{}, err
	}
	return a, nil
}

func (r *Repo) Set(ctx context.Context, a activityrepo.Activity) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if a.ID == "" {
		return errors.New("empty activity id")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (
			id, title, category, date, start_time, end_time, location, creator_id,
			participants, latitude, longitude, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			date = EXCLUDED.date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			location = EXCLUDED.location,
			creator_id = EXCLUDED.creator_id,
			participants = EXCLUDED.participants,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = EXCLUDED.updated_at
	`,
		string(a.ID),
		a.Title,
		a.Category,
		a.Date,
		a.StartTime,
		a.EndTime,
		a.Location,
		string(a.CreatorID),
		toStrings(domain.NormalizeParticipants(a.Participants)),
		a.Latitude,
		a.Longitude,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repo) Delete(ctx context.Context, id domain.ActivityID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activityrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Join(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	return r.updateMembership(ctx, id, user, true)
}

func (r *Repo) Leave(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	return r.updateMembership(ctx, id, user, false)
}

// updateMembership reads the participant set under a row lock and writes only
// when the set actually changes.
func (r *Repo) updateMembership(ctx context.Context, id domain.ActivityID, user domain.UserID, join bool) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var participants []string
		err := tx.QueryRow(ctx, `SELECT participants FROM activities WHERE id = $1 FOR UPDATE`, string(id)).Scan(&participants)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return activityrepo.ErrNotFound
			}
			return err
		}
		present := false
		for _, p := range participants {
			if p == string(user) {
				present = true
				break
			}
		}
		switch {
		case join && !present:
			_, err = tx.Exec(ctx, `UPDATE activities SET participants = array_append(participants, $2) WHERE id = $1`, string(id), string(user))
		case !join && present:
			_, err = tx.Exec(ctx, `UPDATE activities SET participants = array_remove(participants, $2) WHERE id = $1`, string(id), string(user))
		}
		return err
	})
}

func (r *Repo) ListByParticipant(ctx context.Context, user domain.UserID) ([]activityrepo.Activity, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM activities
		WHERE participants @> ARRAY[$1]::text[]
		ORDER BY created_at ASC, id ASC
	`, string(user))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]activityrepo.Activity, error) {
	defer rows.Close()
	out := make([]activityrepo.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanActivity(row pgx.Row) (activityrepo.Activity, error) {
	var (
		a            activityrepo.Activity
		id, creator  string
		participants []string
	)
	if err := row.Scan(
		&id,
		&a.Title,
		&a.Category,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Location,
		&creator,
		&participants,
		&a.Latitude,
		&a.Longitude,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return activityrepo.Activity{}, err
	}
	a.ID = domain.ActivityID(id)
	a.CreatorID = domain.UserID(creator)
	a.Participants = make([]domain.UserID, 0, len(participants))
	for _, p := range participants {
		a.Participants = append(a.Participants, domain.UserID(p))
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func toStrings(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
