package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/store"
)

// Manager runs one Engine per signed-in user. Engines start on the
// auth-state event of the user's session and stop on its sign-out event, so
// mirror lifetime always tracks authentication state.
type Manager struct {
	store    store.Store
	provider auth.Provider

	mu       sync.Mutex
	sessions map[string]*userSession
}

type userSession struct {
	session *auth.Session
	engine  *Engine
	unwatch func()
}

func NewManager(st store.Store, provider auth.Provider) *Manager {
	return &Manager{
		store:    st,
		provider: provider,
		sessions: make(map[string]*userSession),
	}
}

// SignIn authenticates and boots the user's engine.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*auth.UserHandle, error) {
	session := auth.NewSession(m.provider, m.store)
	handle, err := session.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(ctx, session, handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// SignUp registers a new account and boots its engine.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*auth.UserHandle, error) {
	session := auth.NewSession(m.provider, m.store)
	handle, err := session.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(ctx, session, handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// Logout signs the user's session out; the auth-state event stops the
// engine. Unknown users are a no-op.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	m.mu.Lock()
	us, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return us.session.Logout(ctx)
}

// Engine returns the running engine for a user, resuming the session from
// the stored user document when the server restarted since their sign-in.
func (m *Manager) Engine(ctx context.Context, userID string) (*Engine, error) {
	m.mu.Lock()
	if us, ok := m.sessions[userID]; ok && us.engine != nil {
		eng := us.engine
		m.mu.Unlock()
		return eng, nil
	}
	m.mu.Unlock()

	handle, err := m.loadHandle(ctx, userID)
	if err != nil {
		return nil, err
	}

	session := auth.NewSession(m.provider, m.store)
	if err := m.adopt(ctx, session, handle); err != nil {
		return nil, err
	}
	session.Resume(handle)

	m.mu.Lock()
	us := m.sessions[userID]
	m.mu.Unlock()
	if us == nil || us.engine == nil {
		return nil, fmt.Errorf("session for user %s ended during resume", userID)
	}
	return us.engine, nil
}

// Close stops every running engine.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*userSession)
	m.mu.Unlock()

	for _, us := range sessions {
		us.unwatch()
		if us.engine != nil {
			us.engine.Stop()
		}
	}
}

// adopt registers the session and wires the auth-state watcher that starts
// and stops the engine. The watcher fires immediately for an already
// resolved session.
func (m *Manager) adopt(ctx context.Context, session *auth.Session, handle *auth.UserHandle) error {
	userID := handle.ID

	m.mu.Lock()
	if old, ok := m.sessions[userID]; ok {
		old.unwatch()
		if old.engine != nil {
			old.engine.Stop()
		}
		delete(m.sessions, userID)
	}
	us := &userSession{session: session}
	m.sessions[userID] = us
	m.mu.Unlock()

	var startErr error
	us.unwatch = session.OnAuthStateChanged(func(user *auth.UserHandle) {
		if user == nil {
			m.mu.Lock()
			cur, ok := m.sessions[userID]
			if ok && cur == us {
				delete(m.sessions, userID)
			}
			eng := us.engine
			us.engine = nil
			m.mu.Unlock()
			if eng != nil {
				eng.Stop()
			}
			return
		}

		eng := New(m.store, *user)
		if err := eng.Start(ctx); err != nil {
			startErr = fmt.Errorf("start engine for user %s: %w", user.ID, err)
			return
		}
		m.mu.Lock()
		us.engine = eng
		m.mu.Unlock()
	})

	return startErr
}

func (m *Manager) loadHandle(ctx context.Context, userID string) (*auth.UserHandle, error) {
	doc, err := m.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	var u struct {
		Email       string  `json:"email"`
		DisplayName string  `json:"displayName"`
		Avatar      *string `json:"avatar"`
	}
	if err := doc.Decode(&u); err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	handle := &auth.UserHandle{
		ID:          userID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
	if u.Avatar != nil {
		handle.PhotoURL = *u.Avatar
	}
	return handle, nil
}
