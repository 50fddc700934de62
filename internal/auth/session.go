package auth

import (
	"context"
	"sync"

	"github.com/lecternapp/lectern-server/internal/errors"
)

// SessionState holds the current drive session token. Scans and fix runs
// check it before touching remote storage, so an expired sign-in fails fast
// with a reauthentication prompt instead of mid-run.
type SessionState struct {
	tokens *TokenService

	mu    sync.RWMutex
	token string
}

// NewSessionState creates an empty session state.
func NewSessionState(tokens *TokenService) *SessionState {
	return &SessionState{tokens: tokens}
}

// SignIn records a fresh session against the given storage backend and
// returns the issued token.
func (s *SessionState) SignIn(backend string) (string, error) {
	token, err := s.tokens.IssueSessionToken(backend)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// SignOut drops the current session.
func (s *SessionState) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Validate implements the session check used by the reconciliation engine.
func (s *SessionState) Validate(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return errors.SessionExpired("no active drive session; sign in again")
	}
	if _, err := s.tokens.VerifySessionToken(token); err != nil {
		return errors.ErrSessionExpired.WithCause(err)
	}
	return nil
}
