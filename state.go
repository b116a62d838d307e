package goPortal

import (
	"sync"

	"github.com/MrEthical07/goPortal/session"
)

// sessionState is the mutable session record. The mutex makes individual
// field access safe; it does not serialize whole operations.
type sessionState struct {
	mu      sync.RWMutex
	user    *session.Identity
	token   string
	loading bool
	err     string
}

func (s *sessionState) snapshot() session.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := session.State{
		Token:   s.token,
		Loading: s.loading,
		Error:   s.err,
	}
	if s.user != nil {
		u := *s.user
		out.User = &u
	}
	return out
}

func (s *sessionState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *sessionState) hasUser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *sessionState) role() (session.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return "", false
	}
	return s.user.Role, true
}

func (s *sessionState) BeginLoading() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *sessionState) EndLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *sessionState) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *sessionState) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *sessionState) SetUser(user session.Identity) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
}

func (s *sessionState) Clear() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
}
