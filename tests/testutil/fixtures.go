package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// Fixtures provides factory methods for seeding test documents
type Fixtures struct {
	store   store.Store
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(st store.Store) *Fixtures {
	return &Fixtures{store: st}
}

// CreateUser writes a user document with default values and returns its handle
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) auth.UserHandle {
	t.Helper()
	f.counter++

	user := models.User{
		Email:       fmt.Sprintf("user%d@example.com", f.counter),
		DisplayName: fmt.Sprintf("Test User %d", f.counter),
		Role:        models.RoleMember,
		Preferences: models.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(&user)
	}

	// The id is stored in the document body as well: the engine's derived
	// user subscription matches on the id field.
	id := uuid.NewString()
	err := f.store.Set(context.Background(), store.CollectionUsers, id, map[string]any{
		"id":            id,
		"email":         user.Email,
		"displayName":   user.DisplayName,
		"role":          user.Role,
		"preferences":   user.Preferences,
		"schemaVersion": models.CurrentSchemaVersion,
		"createdAt":     time.Now().UTC(),
		"lastLoginAt":   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}

	return auth.UserHandle{
		ID:          id,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

// UserOption customizes a user fixture
type UserOption func(*models.User)

// WithEmail sets a specific email
func WithEmail(email string) UserOption {
	return func(u *models.User) { u.Email = email }
}

// WithDisplayName sets a specific display name
func WithDisplayName(name string) UserOption {
	return func(u *models.User) { u.DisplayName = name }
}

// CreateProject writes a project document owned by the given user
func (f *Fixtures) CreateProject(t *testing.T, owner auth.UserHandle, name string) string {
	t.Helper()

	id, err := f.store.Create(context.Background(), store.CollectionProjects, map[string]any{
		"name":          name,
		"description":   "",
		"createdAt":     time.Now().UTC(),
		"createdBy":     owner.ID,
		"members":       []string{owner.ID},
		"invitedEmails": []string{},
		"teamGroups":    []string{},
		"archived":      false,
		"settings": map[string]any{
			"allowMemberInvites":    true,
			"allowTicketAssignment": true,
			"defaultAssignee":       owner.ID,
		},
	})
	if err != nil {
		t.Fatalf("failed to create project fixture: %v", err)
	}
	return id
}
