// Package store provides a bounded in-memory map with per-entry TTL and
// least-recently-accessed capacity eviction.
package store

import (
	"sync"
	"time"
)

// Mode controls how entry expiry is measured.
type Mode int

const (
	// Sliding measures expiry from the last access; reads refresh the window.
	Sliding Mode = iota
	// Fixed pins expiry at write time; reads do not extend it.
	Fixed
)

// Status is the outcome of a Lookup.
type Status int

const (
	Hit Status = iota
	Miss
	Expired
)

// EvictReason is passed to the eviction hook.
type EvictReason string

const (
	ReasonCapacity EvictReason = "capacity"
	ReasonExpired  EvictReason = "expired"
)

type entry[V any] struct {
	value      V
	expiresAt  time.Time
	lastAccess time.Time
}

// Store is a bounded expiring map. All operations are safe for concurrent use;
// a single mutex serializes mutations, which is sufficient at the expected scale.
type Store[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	maxEntries int
	ttl        time.Duration
	mode       Mode
	now        func() time.Time
	onEvict    func(key string, reason EvictReason)
}

// New creates a store holding at most maxEntries records (0 means unbounded),
// each expiring ttl after its last write (Fixed) or last access (Sliding).
// A ttl of 0 disables expiry.
func New[V any](maxEntries int, ttl time.Duration, mode Mode) *Store[V] {
	return &Store[V]{
		entries:    make(map[string]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		mode:       mode,
		now:        time.Now,
	}
}

// SetClock replaces the time source (used for testing)
func (s *Store[V]) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnEvict registers a hook invoked after an entry is removed by capacity
// eviction or expiry. The hook must not call back into the store.
func (s *Store[V]) OnEvict(fn func(key string, reason EvictReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Put inserts or overwrites key. When the store is full and key is new, the
// entry with the oldest last access time is evicted first.
func (s *Store[V]) Put(key string, value V) {
	var evictedKey string
	var evicted bool

	s.mu.Lock()
	now := s.now()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		evictedKey, evicted = s.oldestKeyLocked()
		if evicted {
			delete(s.entries, evictedKey)
		}
	}

	s.entries[key] = &entry[V]{
		value:      value,
		expiresAt:  s.deadline(now),
		lastAccess: now,
	}
	hook := s.onEvict
	s.mu.Unlock()

	if evicted && hook != nil {
		hook(evictedKey, ReasonCapacity)
	}
}

// Lookup reports whether key holds a live entry, distinguishing a missing key
// from one whose entry has expired. An expired entry is deleted as a side
// effect. In Sliding mode a hit refreshes the entry's access time and window.
func (s *Store[V]) Lookup(key string) (V, Status) {
	var zero V
	var hook func(string, EvictReason)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return zero, Miss
	}

	now := s.now()
	if s.expiredLocked(e, now) {
		delete(s.entries, key)
		hook = s.onEvict
		s.mu.Unlock()
		if hook != nil {
			hook(key, ReasonExpired)
		}
		return zero, Expired
	}

	e.lastAccess = now
	if s.mode == Sliding {
		e.expiresAt = s.deadline(now)
	}
	value := e.value
	s.mu.Unlock()
	return value, Hit
}

// Get returns the live value for key, if any.
func (s *Store[V]) Get(key string) (V, bool) {
	v, st := s.Lookup(key)
	return v, st == Hit
}

// Delete removes key unconditionally, reporting whether it was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Clear removes every entry and returns how many were removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*entry[V])
	return n
}

// Sweep removes every expired entry and returns how many were removed.
// Idempotent and safe to run concurrently with reads and writes.
func (s *Store[V]) Sweep() int {
	var expired []string

	s.mu.Lock()
	now := s.now()
	for key, e := range s.entries {
		if s.expiredLocked(e, now) {
			expired = append(expired, key)
			delete(s.entries, key)
		}
	}
	hook := s.onEvict
	s.mu.Unlock()

	if hook != nil {
		for _, key := range expired {
			hook(key, ReasonExpired)
		}
	}
	return len(expired)
}

// Len returns the number of entries, including any not yet swept.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OldestAge returns the time since the least recently accessed entry was
// touched, or 0 for an empty store.
func (s *Store[V]) OldestAge() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.oldestKeyLocked()
	if !ok {
		return 0
	}
	return s.now().Sub(s.entries[key].lastAccess)
}

func (s *Store[V]) deadline(now time.Time) time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(s.ttl)
}

func (s *Store[V]) expiredLocked(e *entry[V], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (s *Store[V]) oldestKeyLocked() (string, bool) {
	var oldest string
	var oldestAccess time.Time
	found := false
	for key, e := range s.entries {
		if !found || e.lastAccess.Before(oldestAccess) {
			oldest = key
			oldestAccess = e.lastAccess
			found = true
		}
	}
	return oldest, found
}
