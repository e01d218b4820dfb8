package activityrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/activityrepo"
)

// Repo is an in-memory implementation of activityrepo.Repository.
// It is safe for concurrent use; Join and Leave run under the write lock,
// which makes each membership change atomic.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ActivityID]activityrepo.Activity
	// seq records insertion order for ties on CreatedAt.
	seq  map[domain.ActivityID]uint64
	next uint64
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.ActivityID]activityrepo.Activity),
		seq:  make(map[domain.ActivityID]uint64),
	}
}

func (r *Repo) List(ctx context.Context) ([]activityrepo.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]activityrepo.Activity, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, cloneActivity(a))
	}
	r.sortLocked(out)
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ActivityID) (activityrepo.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return activityrepo.Activity{}, activityrepo.ErrNotFound
	}
	return cloneActivity(a), nil
}

func (r *Repo) Set(ctx context.Context, a activityrepo.Activity) error {
	_ = ctx
	if a.ID == "" {
		return errors.New("empty activity id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneActivity(a)
	cp.Participants = domain.NormalizeParticipants(cp.Participants)
	if existing, ok := r.byID[a.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		r.next++
		r.seq[a.ID] = r.next
	}
	r.byID[a.ID] = cp
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.ActivityID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return activityrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.seq, id)
	return nil
}

func (r *Repo) Join(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return activityrepo.ErrNotFound
	}
	if a.HasParticipant(user) {
		return nil
	}
	a.Participants = append(append([]domain.UserID(nil), a.Participants...), user)
	r.byID[id] = a
	return nil
}

func (r *Repo) Leave(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return activityrepo.ErrNotFound
	}
	if !a.HasParticipant(user) {
		return nil
	}
	out := make([]domain.UserID, 0, len(a.Participants)-1)
	for _, p := range a.Participants {
		if p != user {
			out = append(out, p)
		}
	}
	a.Participants = out
	r.byID[id] = a
	return nil
}

func (r *Repo) ListByParticipant(ctx context.Context, user domain.UserID) ([]activityrepo.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]activityrepo.Activity, 0)
	for _, a := range r.byID {
		if a.HasParticipant(user) {
			out = append(out, cloneActivity(a))
		}
	}
	r.sortLocked(out)
	return out, nil
}

func cloneActivity(a activityrepo.Activity) activityrepo.Activity {
	cp := a
	cp.Activity = a.Activity.Clone()
	if cp.Participants == nil {
		cp.Participants = []domain.UserID{}
	}
	return cp
}

func (r *Repo) sortLocked(as []activityrepo.Activity) {
	// Store order: createdAt ascending, then insertion order, then ID.
	sort.Slice(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if sa, sb := r.seq[a.ID], r.seq[b.ID]; sa != sb {
			return sa < sb
		}
		return string(a.ID) < string(b.ID)
	})
}
