package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskmate/taskmate/internal/credential"
	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// Session owns the signed-in user's lifecycle: established once at
// start, reset on logout. Everything that used to be ambient singleton
// state hangs off an explicit Session instance instead.
type Session struct {
	store   store.Store
	gateway remote.Gateway

	mu   sync.Mutex
	user *model.User
}

// New creates an unestablished Session.
func New(s store.Store, gw remote.Gateway) *Session {
	return &Session{store: s, gateway: gw}
}

// Init establishes the session for userID. The cached current user is
// reused when it matches; otherwise the profile is fetched and stored
// as the new current user, which purges entities belonging to any
// previously signed-in account.
func (s *Session) Init(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("session requires a user id")
	}

	cached, err := s.store.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("loading cached session: %w", err)
	}
	if cached != nil && cached.ID == userID {
		s.mu.Lock()
		s.user = cached
		s.mu.Unlock()
		return nil
	}

	user, err := s.gateway.FetchUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetching user %s: %w", userID, err)
	}

	user.IsCurrent = true
	if err := s.store.SetCurrentUser(ctx, *user); err != nil {
		return fmt.Errorf("storing current user: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Established reports whether Init has completed.
func (s *Session) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// CurrentUser returns a copy of the signed-in user, or nil when no
// session is established.
func (s *Session) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentUserID returns the signed-in user's id, or "" when no session
// is established.
func (s *Session) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// ReloadUser re-reads the current user from the store, picking up
// relationship refreshes done by other components.
func (s *Session) ReloadUser(ctx context.Context) error {
	user, err := s.store.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("reloading current user: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Reset tears the session down on logout: cached entities, read state,
// sync bookkeeping, and the stored token are all cleared.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.store.ResetSession(ctx); err != nil {
		return fmt.Errorf("clearing local cache: %w", err)
	}

	// A missing token is fine; the keyring may never have held one.
	_ = credential.Delete(credential.SessionTokenKey)

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return nil
}
