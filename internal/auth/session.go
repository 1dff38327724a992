package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// Session holds the current authenticated identity. It starts in a loading
// state and transitions to authenticated or unauthenticated only through
// provider-backed calls; every transition fires the auth-state watchers.
// State is never cleared directly: Logout signs out at the provider and the
// watcher event does the rest.
type Session struct {
	provider Provider
	store    store.Store
	now      func() time.Time

	mu       sync.RWMutex
	user     *UserHandle
	loading  bool
	watchers []func(*UserHandle)
}

func NewSession(provider Provider, st store.Store) *Session {
	return &Session{
		provider: provider,
		store:    st,
		now:      time.Now,
		loading:  true,
	}
}

// OnAuthStateChanged registers a watcher. If the session has already
// resolved, the watcher is invoked immediately with the current state.
// Returns an unsubscribe func.
func (s *Session) OnAuthStateChanged(fn func(*UserHandle)) func() {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	idx := len(s.watchers) - 1
	resolved := !s.loading
	user := s.user
	s.mu.Unlock()

	if resolved {
		fn(user)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.watchers) {
			s.watchers[idx] = nil
		}
	}
}

func (s *Session) CurrentUser() *UserHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SignIn delegates to the provider and, on success, merge-upserts the last
// login timestamp on the user document without touching its other fields.
// Provider errors propagate unmodified.
func (s *Session) SignIn(ctx context.Context, email, password string) (*UserHandle, error) {
	handle, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = s.store.Set(ctx, store.CollectionUsers, handle.ID, map[string]any{
		"lastLoginAt": s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.setUser(handle)
	return handle, nil
}

// SignUp creates the credential, then the user document with its defaults.
// A missing display name is derived from the email local-part and pushed
// back to the provider profile.
func (s *Session) SignUp(ctx context.Context, email, password string) (*UserHandle, error) {
	handle, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	displayName := handle.DisplayName
	if displayName == "" {
		displayName = emailLocalPart(email)
	}

	now := s.now().UTC()
	prefs := models.DefaultPreferences()
	err = s.store.Set(ctx, store.CollectionUsers, handle.ID, map[string]any{
		"id":            handle.ID,
		"email":         handle.Email,
		"displayName":   displayName,
		"role":          models.RoleMember,
		"createdAt":     now,
		"lastLoginAt":   now,
		"schemaVersion": models.CurrentSchemaVersion,
		"preferences": map[string]any{
			"theme":         prefs.Theme,
			"language":      prefs.Language,
			"notifications": prefs.Notifications,
		},
	})
	if err != nil {
		return nil, err
	}

	if handle.DisplayName == "" {
		if err := s.provider.UpdateProfile(ctx, handle.ID, displayName); err != nil {
			return nil, err
		}
		handle.DisplayName = displayName
	}

	s.setUser(handle)
	return handle, nil
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}
	s.setUser(nil)
	return nil
}

// Resume restores an authenticated state from a validated token without a
// credential round-trip, firing the same auth-state event as a sign-in.
func (s *Session) Resume(handle *UserHandle) {
	s.setUser(handle)
}

func (s *Session) setUser(user *UserHandle) {
	s.mu.Lock()
	s.user = user
	s.loading = false
	watchers := make([]func(*UserHandle), 0, len(s.watchers))
	for _, fn := range s.watchers {
		if fn != nil {
			watchers = append(watchers, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(user)
	}
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	if email != "" {
		return email
	}
	return "User"
}
