// Package session tracks which items have been served within a single
// lesson attempt so a learner does not face the same item twice before the
// attempt ends. Scopes live in memory and are created and discarded
// explicitly by the caller; a lesson attempt has no fixed duration, so
// scopes never time out on their own.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Scope records the item IDs served during one lesson attempt, in order.
type Scope struct {
	mu     sync.Mutex
	used   map[int64]bool
	served []int64
}

// NewScope creates an empty attempt scope.
func NewScope() *Scope {
	return &Scope{used: make(map[int64]bool)}
}

// IsUsed reports whether the item was already served in this attempt.
func (s *Scope) IsUsed(itemID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[itemID]
}

// MarkUsed records the item as served. Marking an already-served item is a
// no-op; its original position in the served order is kept.
func (s *Scope) MarkUsed(itemID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used[itemID] {
		return
	}
	s.used[itemID] = true
	s.served = append(s.served, itemID)
}

// Served returns the item IDs served so far, in first-served order.
func (s *Scope) Served() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.served))
	copy(out, s.served)
	return out
}

type scopeKey struct {
	learnerID uuid.UUID
	lessonID  int64
}

// Registry holds the active attempt scope per learner and lesson. A learner
// has at most one active attempt per lesson; beginning a new one replaces
// the old scope.
type Registry struct {
	mu     sync.Mutex
	scopes map[scopeKey]*Scope
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[scopeKey]*Scope)}
}

// Begin starts a fresh attempt scope for the learner and lesson, replacing
// any existing one.
func (r *Registry) Begin(learnerID uuid.UUID, lessonID int64) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := NewScope()
	r.scopes[scopeKey{learnerID, lessonID}] = s
	return s
}

// Get returns the active scope for the learner and lesson, creating one if
// none exists. Content requests therefore always have a scope to consult.
func (r *Registry) Get(learnerID uuid.UUID, lessonID int64) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scopeKey{learnerID, lessonID}
	if s, ok := r.scopes[key]; ok {
		return s
	}
	s := NewScope()
	r.scopes[key] = s
	return s
}

// Lookup returns the active scope for the learner and lesson, if one exists.
func (r *Registry) Lookup(learnerID uuid.UUID, lessonID int64) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[scopeKey{learnerID, lessonID}]
	return s, ok
}

// Restore installs a scope pre-seeded with already-served item IDs, letting
// the caller rebuild attempt state from durable history after a restart. If
// a scope already exists it is returned unchanged; live in-memory state wins
// over the rehydrated one.
func (r *Registry) Restore(learnerID uuid.UUID, lessonID int64, served []int64) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scopeKey{learnerID, lessonID}
	if s, ok := r.scopes[key]; ok {
		return s
	}
	s := NewScope()
	for _, id := range served {
		s.MarkUsed(id)
	}
	r.scopes[key] = s
	return s
}

// End discards the attempt scope for the learner and lesson.
func (r *Registry) End(learnerID uuid.UUID, lessonID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes, scopeKey{learnerID, lessonID})
}
