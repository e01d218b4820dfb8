package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/actilink/actilink-api/internal/ports/out/clock"
	"github.com/actilink/actilink-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a response is replayable.
const DefaultTTL = 24 * time.Hour

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Records older than the TTL are treated as
// absent and dropped on the next write.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]idempotency.Record
	clk clock.Clock
	ttl time.Duration
}

func NewStore() *Store {
	return NewStoreWithClock(systemClock{}, DefaultTTL)
}

func NewStoreWithClock(clk clock.Clock, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		clk: clk,
		ttl: ttl,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.clk.Now().Sub(rec.CreatedAt) > s.ttl
}
