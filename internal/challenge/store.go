// ABOUTME: Ephemeral in-memory store for in-flight WebAuthn ceremony state.
// ABOUTME: Entries are take-once with absolute expiry and a bounded capacity.

package challenge

import (
	"errors"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// ErrAtCapacity is returned when the store is full of live entries.
// Issuance fails closed rather than evicting in-flight ceremonies.
var ErrAtCapacity = errors.New("challenge store at capacity")

// DefaultTTL is how long a stored ceremony stays redeemable.
const DefaultTTL = 5 * time.Minute

// DefaultMaxSize bounds the number of concurrent in-flight ceremonies.
const DefaultMaxSize = 10_000

// record holds one in-flight ceremony with its expiry.
type record struct {
	session   *webauthn.SessionData
	expiresAt time.Time
}

// Store maps a lookup key (user ID for registration, the challenge value
// itself for login) to pending WebAuthn session data. Entries are consumed
// exactly once via Take; absence and expiry are indistinguishable to the
// caller so clients learn nothing about server state.
type Store struct {
	mu      sync.Mutex
	records map[string]*record
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a challenge store with the given TTL and capacity.
// A background goroutine sweeps expired entries every minute.
func New(ttl time.Duration, maxSize int) *Store {
	s := &Store{
		records: make(map[string]*record),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Put stores session data under the key, overwriting any previous entry.
// When the store is full a compaction pass drops expired entries first;
// if it is still full of live entries, Put fails with ErrAtCapacity.
func (s *Store) Put(key string, session *webauthn.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; !exists && len(s.records) >= s.maxSize {
		s.compactLocked()
		if len(s.records) >= s.maxSize {
			return ErrAtCapacity
		}
	}

	s.records[key] = &record{
		session:   session,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Take atomically removes and returns the entry for the key. Returns
// (nil, false) when the key is absent or the entry has expired; callers
// must treat both identically.
func (s *Store) Take(key string) (*webauthn.SessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok {
		return nil, false
	}
	delete(s.records, key)

	if time.Now().After(r.expiresAt) {
		return nil, false
	}
	return r.session, true
}

// compactLocked removes expired entries. Must be called with mu held.
func (s *Store) compactLocked() {
	now := time.Now()
	for key, r := range s.records {
		if now.After(r.expiresAt) {
			delete(s.records, key)
		}
	}
}

// sweep runs in a background goroutine, periodically removing expired
// entries independent of capacity pressure.
func (s *Store) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.compactLocked()
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Len returns the number of stored entries. Used by tests and diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
