package calendar

import (
	"sync"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"golang.org/x/oauth2"
)

// defaultSessionTTL bounds how long a connected calendar session lives
// without the token itself expiring first.
const defaultSessionTTL = 24 * time.Hour

// session is one connected calendar account, addressed by an opaque id that
// never leaves the server alongside the token.
type session struct {
	token     *oauth2.Token
	expiresAt time.Time
}

// SessionRegistry maps opaque session ids to Google OAuth tokens.
//
// Sessions have an explicit lifecycle: created when the OAuth callback
// completes, looked up per request, and removed on expiry or disconnect.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry with the default TTL.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]session),
		ttl:      defaultSessionTTL,
		now:      time.Now,
	}
}

// Put stores a token and returns the new session id.
func (r *SessionRegistry) Put(token *oauth2.Token) string {
	id := shared.GenerateID()
	expiresAt := r.now().Add(r.ttl)
	if !token.Expiry.IsZero() && token.Expiry.Before(expiresAt) {
		expiresAt = token.Expiry
	}

	r.mu.Lock()
	r.sessions[id] = session{token: token, expiresAt: expiresAt}
	r.mu.Unlock()

	return id
}

// Get returns the token for a session id. Expired sessions are removed on
// lookup and read as not authenticated.
func (r *SessionRegistry) Get(id string) (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}
	if r.now().After(s.expiresAt) {
		delete(r.sessions, id)
		return nil, shared.ErrSessionExpired
	}
	return s.token, nil
}

// Remove disconnects a session. Removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Sweep drops every expired session and reports how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	now := r.now()
	for id, s := range r.sessions {
		if now.After(s.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
