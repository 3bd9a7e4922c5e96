package undeletable

import (
	"context"
	"sync"
)

// DeleteEvent describes a deletion handed to hooks
type DeleteEvent[T any] struct {
	Entity string
	Item   *T
	Force  bool
	// Bulk is set when the event comes from a scope level delete
	Bulk bool
}

// Hook reacts to a deletion. A pre-delete hook returning an error aborts
// the delete before anything is written.
type Hook[T any] func(ctx context.Context, ev DeleteEvent[T]) error

// Signals holds the pre and post delete hooks of one entity type.
// Hooks run synchronously in registration order.
type Signals[T any] struct {
	mu   sync.RWMutex
	pre  []Hook[T]
	post []Hook[T]
}

func (s *Signals[T]) OnPreDelete(h Hook[T]) {
	s.mu.Lock()
	s.pre = append(s.pre, h)
	s.mu.Unlock()
}

func (s *Signals[T]) OnPostDelete(h Hook[T]) {
	s.mu.Lock()
	s.post = append(s.post, h)
	s.mu.Unlock()
}

// Reset removes every registered hook
func (s *Signals[T]) Reset() {
	s.mu.Lock()
	s.pre, s.post = nil, nil
	s.mu.Unlock()
}

func (s *Signals[T]) empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pre) == 0 && len(s.post) == 0
}

// firePre stops at the first failing hook
func (s *Signals[T]) firePre(ctx context.Context, ev DeleteEvent[T]) error {
	s.mu.RLock()
	hooks := s.pre
	s.mu.RUnlock()
	for _, h := range hooks {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// firePost runs every hook and returns the first error
func (s *Signals[T]) firePost(ctx context.Context, ev DeleteEvent[T]) error {
	s.mu.RLock()
	hooks := s.post
	s.mu.RUnlock()
	var firstErr error
	for _, h := range hooks {
		if err := h(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
