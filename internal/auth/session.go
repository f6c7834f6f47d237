// Package auth tracks whether the current user may talk to the cart API.
package auth

import (
	"strings"
	"sync"
)

// Gate is the authentication contract the cart engine depends on.
type Gate interface {
	IsAuthenticated() bool
	// RequireAuth may prompt the user and reports whether the caller may proceed.
	RequireAuth() bool
}

// Session holds the bearer token for the active user.
type Session struct {
	mu     sync.RWMutex
	token  string
	prompt func() bool
}

// NewSession returns a session for token. prompt is called by RequireAuth
// when no token is present; a nil prompt denies.
func NewSession(token string, prompt func() bool) *Session {
	return &Session{token: strings.TrimSpace(token), prompt: prompt}
}

// Token returns the current bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the bearer token. An empty token signs the user out.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// IsAuthenticated implements Gate.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// RequireAuth implements Gate.
func (s *Session) RequireAuth() bool {
	if s.IsAuthenticated() {
		return true
	}
	s.mu.RLock()
	prompt := s.prompt
	s.mu.RUnlock()
	if prompt == nil {
		return false
	}
	return prompt()
}
