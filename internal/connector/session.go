package connector

import (
	"sync"
	"time"
)

// Session holds the state of one linked account. It is never persisted.
type Session struct {
	connectedAt time.Time
	accessToken string
	itemID      string
	mu          sync.RWMutex
}

// NewSession returns a disconnected session.
func NewSession() *Session {
	return &Session{}
}

// AccessToken returns the current access token, or "" when not connected.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ItemID returns the linked item's ID.
func (s *Session) ItemID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemID
}

// ConnectedAt returns when the current token was stored.
func (s *Session) ConnectedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedAt
}

// Connected reports whether an access token is held.
func (s *Session) Connected() bool {
	return s.AccessToken() != ""
}

// Connect stores an access token directly, for callers that already hold one.
func (s *Session) Connect(accessToken, itemID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.itemID = itemID
	s.connectedAt = at
}

// Disconnect drops the access token.
func (s *Session) Disconnect() {
	s.Connect("", "", time.Time{})
}
