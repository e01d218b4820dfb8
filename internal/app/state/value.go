// Package state provides an observable value holder.
package state

import "sync"

// Value holds a T and notifies subscribers synchronously on every Set.
//
// Listeners run outside the lock, in subscription order, and always end on
// the current value. A Set made while a delivery is in flight (from a
// listener or another goroutine) is handed to the delivering goroutine,
// which stops the stale round and redelivers the newest value.
type Value[T any] struct {
	mu        sync.RWMutex
	v         T
	gen       uint64
	delivered uint64
	draining  bool
	listeners map[uint64]func(T)
	order     []uint64
	next      uint64
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, listeners: make(map[uint64]func(T))}
}

func (s *Value[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

func (s *Value[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) under the lock, then notifies.
// fn must not call back into s.
func (s *Value[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.v = fn(s.v)
	s.gen++
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()
	s.drain()
}

func (s *Value[T]) drain() {
	for {
		s.mu.Lock()
		if s.delivered == s.gen {
			s.draining = false
			s.mu.Unlock()
			return
		}
		v, g := s.v, s.gen
		fns := make([]func(T), 0, len(s.order))
		for _, id := range s.order {
			fns = append(fns, s.listeners[id])
		}
		s.mu.Unlock()

		for _, fn := range fns {
			if s.generation() != g {
				break
			}
			fn(v)
		}

		s.mu.Lock()
		if s.delivered < g {
			s.delivered = g
		}
		s.mu.Unlock()
	}
}

func (s *Value[T]) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Subscribe registers fn and returns a func that removes it. The unsubscribe
// func is safe to call more than once.
func (s *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.listeners[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, o := range s.order {
				if o == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}
