// Package dedup provides bounded recency sets that gate repeated
// webhook deliveries of the same ledger operation.
package dedup

import "sync"

// DefaultCap is the reference capacity for a seen-set.
const DefaultCap = 1024

// Set is a capped set of identifiers. Once the set grows past its cap
// it is cleared wholesale rather than evicted entry by entry; a short
// duplicate-notification window after a clear is accepted in exchange
// for O(1) bookkeeping.
type Set struct {
	mu   sync.Mutex
	cap  int
	seen map[string]struct{}
}

// NewSet returns a set with the given cap; non-positive caps fall back
// to DefaultCap.
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Set{cap: capacity, seen: make(map[string]struct{})}
}

// FirstSeen reports whether id has not been seen before and records it.
// Check and insert happen under one lock, so concurrent callers can
// never both observe "first".
func (s *Set) FirstSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	if len(s.seen) > s.cap {
		s.seen = make(map[string]struct{})
	}
	return true
}

// Len returns the current number of tracked ids.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Cache bundles the two independent seen-sets: operation ids gate
// delivery; transaction hashes are recorded for future cross-operation
// dedup but are not acted on yet.
type Cache struct {
	Ops *Set
	Txs *Set
}

// New returns a Cache whose sets share the same cap.
func New(capacity int) *Cache {
	return &Cache{Ops: NewSet(capacity), Txs: NewSet(capacity)}
}
