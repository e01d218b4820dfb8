package accountrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/actilink/actilink-api/internal/ports/out/accountrepo"
)

// Repo is an in-memory implementation of accountrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu      sync.RWMutex
	byEmail map[string]accountrepo.Account
}

func NewRepo() *Repo {
	return &Repo{byEmail: make(map[string]accountrepo.Account)}
}

func (r *Repo) Create(ctx context.Context, a accountrepo.Account) error {
	_ = ctx
	key := strings.ToLower(strings.TrimSpace(a.Email))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return accountrepo.ErrEmailTaken
	}
	a.Email = key
	r.byEmail[key] = a
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (accountrepo.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return a, nil
}
