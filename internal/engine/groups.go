package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/lberthe/kanbo-api/internal/store"
)

// CreateTeamGroup creates a group with the caller as sole member. A
// non-empty projectID scopes the group to that project, which only the
// project creator may do; an empty projectID makes a global group anyone
// can create.
func (e *Engine) CreateTeamGroup(ctx context.Context, name, description, color, projectID string) (string, error) {
	if err := e.requireUser(); err != nil {
		return "", err
	}
	if projectID != "" {
		project, ok := e.findProject(projectID)
		if !ok || project.CreatedBy != e.user.ID {
			return "", ErrOnlyAdminsCreateGroups
		}
	}

	data := map[string]any{
		"name":          name,
		"description":   description,
		"color":         color,
		"members":       []string{e.user.ID},
		"invitedEmails": []string{},
		"createdAt":     e.now().UTC(),
	}
	if projectID != "" {
		data["projectId"] = projectID
	}

	id, err := e.store.Create(ctx, store.CollectionTeamGroups, data)
	if err != nil {
		return "", fmt.Errorf("create team group: %w", err)
	}

	if projectID != "" {
		if err := e.linkGroupToProject(ctx, projectID, id); err != nil {
			return id, fmt.Errorf("group created but not linked to project: %w", err)
		}
	}
	return id, nil
}

func (e *Engine) UpdateTeamGroup(ctx context.Context, groupID string, updates map[string]any) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findGroup(groupID); !ok {
		return ErrGroupNotFound
	}
	return e.store.Update(ctx, store.CollectionTeamGroups, groupID, updates)
}

// DeleteTeamGroup deletes a group. Project-scoped groups are guarded by
// the project creator, global groups by their first member.
func (e *Engine) DeleteTeamGroup(ctx context.Context, groupID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	group, ok := e.findGroup(groupID)
	if !ok {
		return ErrGroupNotFound
	}

	if group.IsGlobal() {
		if len(group.Members) == 0 || group.Members[0] != e.user.ID {
			return ErrOnlyCreatorDeleteGroup
		}
		return e.store.Delete(ctx, store.CollectionTeamGroups, groupID)
	}

	project, ok := e.findProject(group.ProjectID)
	if !ok || project.CreatedBy != e.user.ID {
		return ErrOnlyAdminsDeleteGroups
	}
	if err := e.store.Delete(ctx, store.CollectionTeamGroups, groupID); err != nil {
		return err
	}
	return e.unlinkGroupFromProject(ctx, group.ProjectID, groupID)
}

// AddUserToGroup adds a member. Membership in a project-scoped group
// requires membership in the project first. Adding an existing member is a
// no-op, never a duplicate.
func (e *Engine) AddUserToGroup(ctx context.Context, groupID, userID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	group, ok := e.findGroup(groupID)
	if !ok {
		return ErrGroupNotFound
	}
	if !group.IsGlobal() {
		project, ok := e.findProject(group.ProjectID)
		if !ok || !project.HasMember(userID) {
			return ErrUserNotProjectMember
		}
	}
	return e.addGroupMember(ctx, groupID, userID)
}

func (e *Engine) RemoveUserFromGroup(ctx context.Context, groupID, userID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findGroup(groupID); !ok {
		return ErrGroupNotFound
	}

	doc, err := e.store.Get(ctx, store.CollectionTeamGroups, groupID)
	if err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	current, err := decodeGroup(doc, e.now())
	if err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	if !current.HasMember(userID) {
		return nil
	}

	members := slices.DeleteFunc(append([]string(nil), current.Members...), func(m string) bool {
		return m == userID
	})
	return e.store.Update(ctx, store.CollectionTeamGroups, groupID, map[string]any{
		"members": members,
	})
}

// addGroupMember appends to the stored member list after re-reading it, so
// concurrent adds converge on a duplicate-free set.
func (e *Engine) addGroupMember(ctx context.Context, groupID, userID string) error {
	doc, err := e.store.Get(ctx, store.CollectionTeamGroups, groupID)
	if err != nil {
		return err
	}
	current, err := decodeGroup(doc, e.now())
	if err != nil {
		return err
	}
	if current.HasMember(userID) {
		return nil
	}
	return e.store.Update(ctx, store.CollectionTeamGroups, groupID, map[string]any{
		"members": append(current.Members, userID),
	})
}

func (e *Engine) linkGroupToProject(ctx context.Context, projectID, groupID string) error {
	doc, err := e.store.Get(ctx, store.CollectionProjects, projectID)
	if err != nil {
		return err
	}
	current, err := decodeProject(doc, e.now())
	if err != nil {
		return err
	}
	if current.HasGroup(groupID) {
		return nil
	}
	return e.store.Update(ctx, store.CollectionProjects, projectID, map[string]any{
		"teamGroups": append(current.TeamGroups, groupID),
		"updatedAt":  e.now().UTC(),
	})
}

func (e *Engine) unlinkGroupFromProject(ctx context.Context, projectID, groupID string) error {
	doc, err := e.store.Get(ctx, store.CollectionProjects, projectID)
	if err != nil {
		return err
	}
	current, err := decodeProject(doc, e.now())
	if err != nil {
		return err
	}
	if !current.HasGroup(groupID) {
		return nil
	}
	groups := slices.DeleteFunc(append([]string(nil), current.TeamGroups...), func(g string) bool {
		return g == groupID
	})
	return e.store.Update(ctx, store.CollectionProjects, projectID, map[string]any{
		"teamGroups": groups,
		"updatedAt":  e.now().UTC(),
	})
}
