// Package session models who is signed in and which view they are on.
//
// A Session is an explicit value. The client owns one for the lifetime of a
// user's visit; the API attaches one per request through the context after
// the bearer token has been verified.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/floroz/bazaar/pkg/apperr"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

type View string

const (
	ViewLogin    View = "login"
	ViewSignup   View = "signup"
	ViewBuy      View = "buy"
	ViewAuctions View = "auctions"
	ViewProfile  View = "profile"
)

var allowedViews = map[State]map[View]bool{
	Anonymous:     {ViewLogin: true, ViewSignup: true},
	Authenticated: {ViewBuy: true, ViewAuctions: true, ViewProfile: true},
}

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrViewNotAllowed  = apperr.New(apperr.ErrValidation, "view not available")
)

type Session struct {
	mu        sync.RWMutex
	username  string
	token     string
	expiresAt time.Time
	view      View
}

// New returns an anonymous session on the login view.
func New() *Session {
	return &Session{view: ViewLogin}
}

// NewAuthenticated returns a session that is already signed in.
func NewAuthenticated(username, token string, expiresAt time.Time) *Session {
	s := New()
	s.Authenticate(username, token, expiresAt)
	return s
}

// Authenticate signs the user in and lands them on their profile.
func (s *Session) Authenticate(username, token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.token = token
	s.expiresAt = expiresAt
	s.view = ViewProfile
}

// Logout drops the identity and returns to the login view.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.token = ""
	s.expiresAt = time.Time{}
	s.view = ViewLogin
}

// Navigate moves to v if it is reachable in the current state.
func (s *Session) Navigate(v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked()
	if !allowedViews[state][v] {
		return fmt.Errorf("%w: %s while %s", ErrViewNotAllowed, v, state)
	}
	s.view = v
	return nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.username == "" {
		return Anonymous
	}
	return Authenticated
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Username returns the signed-in user, or false when anonymous.
func (s *Session) Username() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username, s.username != ""
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Require returns the signed-in username or ErrUnauthenticated.
func Require(ctx context.Context) (string, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	username, ok := s.Username()
	if !ok {
		return "", ErrUnauthenticated
	}
	return username, nil
}
