package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// InviteUserToProject records the email on the project and creates a
// pending invitation. One pending invitation per email and target: a second
// invite while the first is live is refused.
func (e *Engine) InviteUserToProject(ctx context.Context, projectID, email, message string) (string, error) {
	if err := e.requireUser(); err != nil {
		return "", err
	}
	project, ok := e.findProject(projectID)
	if !ok {
		return "", ErrProjectNotFound
	}
	if !project.HasMember(e.user.ID) {
		return "", ErrInviterNotMember
	}
	if !project.Settings.AllowMemberInvites && project.CreatedBy != e.user.ID {
		return "", ErrOnlyAdminsInvite
	}

	if err := e.checkNoPending(ctx, email, models.InvitationTypeProject, projectID); err != nil {
		return "", err
	}
	if err := e.recordInvitedEmail(ctx, store.CollectionProjects, projectID, email); err != nil {
		return "", fmt.Errorf("invite user to project: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Vous avez été invité à rejoindre le projet « %s »", project.Name)
	}
	return e.createInvitation(ctx, email, models.InvitationTypeProject, projectID, message)
}

// InviteUserToGroup mirrors InviteUserToProject for team groups. Only
// current group members can invite.
func (e *Engine) InviteUserToGroup(ctx context.Context, groupID, email, message string) (string, error) {
	if err := e.requireUser(); err != nil {
		return "", err
	}
	group, ok := e.findGroup(groupID)
	if !ok {
		return "", ErrGroupNotFound
	}
	if !group.HasMember(e.user.ID) {
		return "", ErrInviterNotMember
	}

	if err := e.checkNoPending(ctx, email, models.InvitationTypeGroup, groupID); err != nil {
		return "", err
	}
	if err := e.recordInvitedEmail(ctx, store.CollectionTeamGroups, groupID, email); err != nil {
		return "", fmt.Errorf("invite user to group: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Vous avez été invité à rejoindre l'équipe « %s »", group.Name)
	}
	return e.createInvitation(ctx, email, models.InvitationTypeGroup, groupID, message)
}

// AcceptInvitation marks the invitation accepted, then applies the
// membership it grants. For a project invitation the user also joins every
// team group linked to the project; each group join is retried
// independently and a failure there does not undo the project membership.
func (e *Engine) AcceptInvitation(ctx context.Context, invitationID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	inv, ok := e.findInvitation(invitationID)
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.Email != e.user.Email {
		return fmt.Errorf("%w: %s is not %s", ErrInvitationWrongEmail, e.user.Email, inv.Email)
	}
	if inv.Status != models.InvitationStatusPending {
		return ErrInvitationNotPending
	}
	if inv.ExpiredAt(e.now()) {
		if err := e.setInvitationStatus(ctx, inv.ID, models.InvitationStatusExpired); err != nil {
			return err
		}
		return ErrInvitationExpired
	}

	if err := e.setInvitationStatus(ctx, inv.ID, models.InvitationStatusAccepted); err != nil {
		return err
	}

	switch inv.Type {
	case models.InvitationTypeProject:
		return e.acceptProjectInvitation(ctx, inv)
	case models.InvitationTypeGroup:
		return e.acceptGroupInvitation(ctx, inv)
	default:
		return fmt.Errorf("invitation %s has unknown type %q", inv.ID, inv.Type)
	}
}

func (e *Engine) acceptProjectInvitation(ctx context.Context, inv models.Invitation) error {
	doc, err := e.store.Get(ctx, store.CollectionProjects, inv.TargetID)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	project, err := decodeProject(doc, e.now())
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}

	patch := map[string]any{
		"invitedEmails": removeString(project.InvitedEmails, inv.Email),
		"updatedAt":     e.now().UTC(),
	}
	if !project.HasMember(e.user.ID) {
		patch["members"] = append(project.Members, e.user.ID)
	}
	if err := e.store.Update(ctx, store.CollectionProjects, inv.TargetID, patch); err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}

	// The project membership just written may take a moment to become
	// visible to the group writes, so each join retries on its own.
	for _, groupID := range project.TeamGroups {
		// Best effort: a group that cannot be joined right now is left for
		// a manual add rather than failing the whole acceptance.
		_ = withRetry(ctx, "join group "+groupID, defaultRetryAttempts, defaultRetryDelay, func() error {
			return e.joinLinkedGroup(ctx, groupID, inv.Email)
		})
	}
	return nil
}

// joinLinkedGroup adds the user to a group linked to the project they just
// joined, withdrawing the group's own invited-email entry when it carries
// one.
func (e *Engine) joinLinkedGroup(ctx context.Context, groupID, email string) error {
	doc, err := e.store.Get(ctx, store.CollectionTeamGroups, groupID)
	if err != nil {
		return err
	}
	group, err := decodeGroup(doc, e.now())
	if err != nil {
		return err
	}

	patch := map[string]any{}
	if group.HasInvitedEmail(email) {
		patch["invitedEmails"] = removeString(group.InvitedEmails, email)
	}
	if !group.HasMember(e.user.ID) {
		patch["members"] = append(group.Members, e.user.ID)
	}
	if len(patch) == 0 {
		return nil
	}
	return e.store.Update(ctx, store.CollectionTeamGroups, groupID, patch)
}

func (e *Engine) acceptGroupInvitation(ctx context.Context, inv models.Invitation) error {
	doc, err := e.store.Get(ctx, store.CollectionTeamGroups, inv.TargetID)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	group, err := decodeGroup(doc, e.now())
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}

	patch := map[string]any{
		"invitedEmails": removeString(group.InvitedEmails, inv.Email),
	}
	if !group.HasMember(e.user.ID) {
		patch["members"] = append(group.Members, e.user.ID)
	}
	if err := e.store.Update(ctx, store.CollectionTeamGroups, inv.TargetID, patch); err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	return nil
}

// DeclineInvitation marks the invitation declined and withdraws the email
// from the target's invited list. Membership left behind by an interrupted
// earlier acceptance is removed again.
func (e *Engine) DeclineInvitation(ctx context.Context, invitationID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	inv, ok := e.findInvitation(invitationID)
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.Email != e.user.Email {
		return fmt.Errorf("%w: %s is not %s", ErrInvitationWrongEmail, e.user.Email, inv.Email)
	}
	if inv.Status != models.InvitationStatusPending {
		return ErrInvitationNotPending
	}

	if err := e.setInvitationStatus(ctx, inv.ID, models.InvitationStatusDeclined); err != nil {
		return err
	}

	collection := store.CollectionProjects
	if inv.Type == models.InvitationTypeGroup {
		collection = store.CollectionTeamGroups
	}
	if err := e.withdrawInvitedEmail(ctx, collection, inv.TargetID, inv.Email); err != nil {
		return err
	}
	return e.removeSelfMembership(ctx, collection, inv.TargetID)
}

// DeleteInvitation removes the invitation record regardless of status. Only
// the inviter or the invited user may do so; any project membership already
// granted stays.
func (e *Engine) DeleteInvitation(ctx context.Context, invitationID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}

	inv, ok := e.findInvitation(invitationID)
	if !ok {
		// The inviter does not mirror invitations addressed to others,
		// so fall back to a direct read.
		doc, err := e.store.Get(ctx, store.CollectionInvitations, invitationID)
		if err != nil {
			return ErrInvitationNotFound
		}
		decoded, err := decodeInvitation(doc, e.now())
		if err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		inv = decoded
	}

	if inv.InvitedBy != e.user.ID && inv.Email != e.user.Email {
		return ErrNotInviterOrTarget
	}
	if err := e.store.Delete(ctx, store.CollectionInvitations, invitationID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if inv.Status == models.InvitationStatusPending {
		collection := store.CollectionProjects
		if inv.Type == models.InvitationTypeGroup {
			collection = store.CollectionTeamGroups
		}
		if err := e.withdrawInvitedEmail(ctx, collection, inv.TargetID, inv.Email); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
	}
	return nil
}

// --- helpers ---

func (e *Engine) checkNoPending(ctx context.Context, email, invType, targetID string) error {
	q := store.C(store.CollectionInvitations).
		Where("email", store.OpEqual, email).
		Where("type", store.OpEqual, invType).
		Where("targetId", store.OpEqual, targetID).
		Where("status", store.OpEqual, models.InvitationStatusPending)
	docs, err := e.store.Find(ctx, q)
	if err != nil {
		return fmt.Errorf("check pending invitations: %w", err)
	}
	if len(docs) > 0 {
		return ErrInvitationPending
	}
	return nil
}

func (e *Engine) createInvitation(ctx context.Context, email, invType, targetID, message string) (string, error) {
	now := e.now().UTC()
	id, err := e.store.Create(ctx, store.CollectionInvitations, map[string]any{
		"email":     email,
		"type":      invType,
		"targetId":  targetID,
		"invitedBy": e.user.ID,
		"status":    models.InvitationStatusPending,
		"message":   message,
		"createdAt": now,
		"expiresAt": now.Add(models.InvitationTTL),
	})
	if err != nil {
		return "", fmt.Errorf("create invitation: %w", err)
	}
	return id, nil
}

func (e *Engine) setInvitationStatus(ctx context.Context, invitationID, status string) error {
	err := e.store.Update(ctx, store.CollectionInvitations, invitationID, map[string]any{
		"status": status,
	})
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	return nil
}

// recordInvitedEmail appends the email to the target's invitedEmails if it
// is not already there.
func (e *Engine) recordInvitedEmail(ctx context.Context, collection, targetID, email string) error {
	doc, err := e.store.Get(ctx, collection, targetID)
	if err != nil {
		return err
	}
	var target struct {
		InvitedEmails []string `json:"invitedEmails"`
	}
	if err := doc.Decode(&target); err != nil {
		return err
	}
	if slices.Contains(target.InvitedEmails, email) {
		return nil
	}
	return e.store.Update(ctx, collection, targetID, map[string]any{
		"invitedEmails": append(target.InvitedEmails, email),
	})
}

func (e *Engine) withdrawInvitedEmail(ctx context.Context, collection, targetID, email string) error {
	doc, err := e.store.Get(ctx, collection, targetID)
	if err != nil {
		// Target gone: nothing to withdraw from.
		return nil
	}
	var target struct {
		InvitedEmails []string `json:"invitedEmails"`
	}
	if err := doc.Decode(&target); err != nil {
		return err
	}
	if !slices.Contains(target.InvitedEmails, email) {
		return nil
	}
	return e.store.Update(ctx, collection, targetID, map[string]any{
		"invitedEmails": removeString(target.InvitedEmails, email),
	})
}

// removeSelfMembership drops the current user from the target's member
// list. An acceptance cut short between the membership write and the status
// write can leave the user in place even though the invitation is still
// pending; declining cleans that up.
func (e *Engine) removeSelfMembership(ctx context.Context, collection, targetID string) error {
	doc, err := e.store.Get(ctx, collection, targetID)
	if err != nil {
		// Target gone: nothing to roll back.
		return nil
	}
	var target struct {
		Members []string `json:"members"`
	}
	if err := doc.Decode(&target); err != nil {
		return err
	}
	if !slices.Contains(target.Members, e.user.ID) {
		return nil
	}
	return e.store.Update(ctx, collection, targetID, map[string]any{
		"members": removeString(target.Members, e.user.ID),
	})
}

func removeString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
