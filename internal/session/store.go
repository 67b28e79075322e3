package session

import (
	"sync"
	"time"
)

// Token is the token pair returned by the Spotify token endpoint.
type Token struct {
	AccessToken  string
	RefreshToken string
	StoredAt     time.Time
}

// Store is the process-wide session slot.
type Store struct {
	mu    sync.RWMutex
	token *Token
	// writes counts successful Set calls; used by health details and tests
	writes uint64
	now    func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Set replaces the current token. Empty access tokens are ignored so a
// malformed upstream response can never clear an existing session.
func (s *Store) Set(accessToken, refreshToken string) bool {
	if accessToken == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = &Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		StoredAt:     s.now(),
	}
	s.writes++
	return true
}

// AccessToken returns the current access token and whether one is set.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return "", false
	}
	return s.token.AccessToken, true
}

// Current returns a copy of the stored token, or nil if no login has completed.
func (s *Store) Current() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// HasToken reports whether a login has completed.
func (s *Store) HasToken() bool {
	_, ok := s.AccessToken()
	return ok
}

// Writes returns the number of tokens stored since startup.
func (s *Store) Writes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
