package engine

import "errors"

var (
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrProjectNotFound    = errors.New("project not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrGroupNotFound      = errors.New("team group not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvalidTicketField = errors.New("invalid ticket field")
)

// Authorization failures carry the fixed messages shown to users.
var (
	ErrOnlyAdminsInvite       = errors.New("Only project admins can invite users")
	ErrOnlyAdminsRemoveUsers  = errors.New("Only project admins can remove users")
	ErrOnlyAdminsUpdateRoles  = errors.New("Only project admins can update user roles")
	ErrOnlyAdminsCreateGroups = errors.New("Only project admins can create team groups")
	ErrOnlyAdminsDeleteGroups = errors.New("Only project admins can delete team groups")
	ErrOnlyCreatorDeleteGroup = errors.New("Only the group creator can delete this group")
	ErrUserNotProjectMember   = errors.New("user is not a member of this project")
	ErrInviterNotMember       = errors.New("only members can send invitations")
	ErrInvitationPending      = errors.New("an invitation for this email is already pending")
	ErrInvitationNotPending   = errors.New("invitation is no longer pending")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrInvitationWrongEmail   = errors.New("invitation is addressed to another email")
	ErrNotInviterOrTarget     = errors.New("only the inviter or the invited user can delete an invitation")
)
