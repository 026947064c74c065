// Package session keeps one connector session per browser.
package session

import (
	"sync"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

type entry struct {
	lastSeen time.Time
	session  *connector.Session
}

// Store is an in-memory, concurrency-safe map of session IDs to sessions.
// Nothing is persisted; a restart drops every linked account.
type Store struct {
	now     func() time.Time
	entries map[string]*entry
	ttl     time.Duration
	mu      sync.Mutex
}

// NewStore creates a store that expires sessions idle for longer than ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		now:     time.Now,
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Create starts a new session and returns its ID.
func (s *Store) Create() (string, *connector.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	id := uuid.NewString()
	sess := connector.NewSession()
	s.entries[id] = &entry{session: sess, lastSeen: s.now()}
	return id, sess
}

// Get returns the session with the given ID and refreshes its expiry.
func (s *Store) Get(id string) (*connector.Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.session, true
}

// GetOrCreate returns the session for id, creating a new one when id is
// unknown or expired. The returned ID may differ from the one passed in.
func (s *Store) GetOrCreate(id string) (string, *connector.Session) {
	if sess, ok := s.Get(id); ok {
		return id, sess
	}
	return s.Create()
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.entries)
}

func (s *Store) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			e.session.Disconnect()
			delete(s.entries, id)
		}
	}
}
