package profilerepo

import (
	"context"
	"errors"
	"sync"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.UserID]domain.UserProfile
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.UserID]domain.UserProfile)}
}

func (r *Repo) Create(ctx context.Context, p domain.UserProfile) error {
	_ = ctx
	if p.UserID == "" {
		return errors.New("empty user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.UserID]; ok {
		return profilerepo.ErrAlreadyExists
	}
	r.byID[p.UserID] = p
	return nil
}

func (r *Repo) Update(ctx context.Context, p domain.UserProfile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[p.UserID]
	if !ok {
		return profilerepo.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	r.byID[p.UserID] = p
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.UserID) (domain.UserProfile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.UserProfile{}, profilerepo.ErrNotFound
	}
	return p, nil
}
