package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// CreateProject creates a project with the caller as creator and sole
// member. A non-empty groupID links an existing team group to the project
// and pulls the creator into that group.
func (e *Engine) CreateProject(ctx context.Context, name, description, groupID string) (string, error) {
	if err := e.requireUser(); err != nil {
		return "", err
	}

	now := e.now().UTC()
	teamGroups := []string{}
	if groupID != "" {
		teamGroups = []string{groupID}
	}

	id, err := e.store.Create(ctx, store.CollectionProjects, map[string]any{
		"name":          name,
		"description":   description,
		"createdAt":     now,
		"createdBy":     e.user.ID,
		"members":       []string{e.user.ID},
		"invitedEmails": []string{},
		"teamGroups":    teamGroups,
		"archived":      false,
		"settings": models.ProjectSettings{
			AllowMemberInvites:    true,
			AllowTicketAssignment: true,
			DefaultAssignee:       e.user.ID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	if groupID != "" {
		if err := e.addGroupMember(ctx, groupID, e.user.ID); err != nil {
			return id, fmt.Errorf("project created but group %s not joined: %w", groupID, err)
		}
	}
	return id, nil
}

// UpdateProject applies a partial update. Field names follow the stored
// document, not the Go struct.
func (e *Engine) UpdateProject(ctx context.Context, projectID string, updates map[string]any) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findProject(projectID); !ok {
		return ErrProjectNotFound
	}

	patch := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		patch[k] = v
	}
	patch["updatedAt"] = e.now().UTC()
	return e.store.Update(ctx, store.CollectionProjects, projectID, patch)
}

func (e *Engine) ArchiveProject(ctx context.Context, projectID string) error {
	return e.UpdateProject(ctx, projectID, map[string]any{"archived": true})
}

func (e *Engine) RestoreProject(ctx context.Context, projectID string) error {
	return e.UpdateProject(ctx, projectID, map[string]any{"archived": false})
}

// DeleteProject removes the project document only. Tickets keep their
// projectId and become invisible through the mirror's orphan filtering.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findProject(projectID); !ok {
		return ErrProjectNotFound
	}
	return e.store.Delete(ctx, store.CollectionProjects, projectID)
}

// RemoveUserFromProject ejects a member. Only the project creator may do
// this, and an unknown project yields the same refusal as a non-creator:
// callers learn nothing about projects they cannot administer.
func (e *Engine) RemoveUserFromProject(ctx context.Context, projectID, userID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	project, ok := e.findProject(projectID)
	if !ok || project.CreatedBy != e.user.ID {
		return ErrOnlyAdminsRemoveUsers
	}

	doc, err := e.store.Get(ctx, store.CollectionProjects, projectID)
	if err != nil {
		return fmt.Errorf("remove user from project: %w", err)
	}
	current, err := decodeProject(doc, e.now())
	if err != nil {
		return fmt.Errorf("remove user from project: %w", err)
	}
	if !current.HasMember(userID) {
		return nil
	}

	members := slices.DeleteFunc(append([]string(nil), current.Members...), func(m string) bool {
		return m == userID
	})
	return e.store.Update(ctx, store.CollectionProjects, projectID, map[string]any{
		"members":   members,
		"updatedAt": e.now().UTC(),
	})
}

// UpdateUserRole records a per-project role override. Roles live in their
// own collection keyed projectID_userID so a role change never races a
// membership write.
func (e *Engine) UpdateUserRole(ctx context.Context, projectID, userID, role string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	project, ok := e.findProject(projectID)
	if !ok || project.CreatedBy != e.user.ID {
		return ErrOnlyAdminsUpdateRoles
	}

	docID := projectID + "_" + userID
	return e.store.Set(ctx, store.CollectionProjectUsers, docID, map[string]any{
		"projectId": projectID,
		"userId":    userID,
		"role":      role,
		"updatedAt": e.now().UTC(),
	})
}

// AssignGroupToProject links an existing team group and makes sure the
// caller belongs to it. Linking twice is a no-op.
func (e *Engine) AssignGroupToProject(ctx context.Context, projectID, groupID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findProject(projectID); !ok {
		return ErrProjectNotFound
	}
	if _, ok := e.findGroup(groupID); !ok {
		return ErrGroupNotFound
	}
	if err := e.linkGroupToProject(ctx, projectID, groupID); err != nil {
		return fmt.Errorf("assign group to project: %w", err)
	}
	if err := e.addGroupMember(ctx, groupID, e.user.ID); err != nil {
		return fmt.Errorf("assign group to project: %w", err)
	}
	return nil
}

// GetProjectMembers resolves a project's member ids against the users
// mirror; ids without a loaded user document are skipped.
func (e *Engine) GetProjectMembers(projectID string) ([]models.User, error) {
	project, ok := e.findProject(projectID)
	if !ok {
		return nil, ErrProjectNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []models.User
	for _, u := range e.users {
		if slices.Contains(project.Members, u.ID) {
			out = append(out, u)
		}
	}
	return out, nil
}
