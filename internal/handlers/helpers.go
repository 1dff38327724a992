package handlers

import (
	"context"
	"errors"

	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/middleware"
	"github.com/m1z23r/drift/pkg/drift"
)

// engineFor resolves the caller's engine, writing the error response itself
// when it cannot.
func engineFor(c *drift.Context, manager *engine.Manager) (*engine.Engine, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.Unauthorized("not authenticated")
		return nil, false
	}
	eng, err := manager.Engine(context.Background(), userID)
	if err != nil {
		c.Unauthorized("session not found")
		return nil, false
	}
	return eng, true
}

// engineError translates engine sentinels into HTTP responses. Unknown
// errors become a 500 with a generic message.
func engineError(c *drift.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotAuthenticated):
		c.Unauthorized(err.Error())
	case errors.Is(err, engine.ErrProjectNotFound),
		errors.Is(err, engine.ErrTicketNotFound),
		errors.Is(err, engine.ErrGroupNotFound),
		errors.Is(err, engine.ErrInvitationNotFound):
		c.NotFound(err.Error())
	case errors.Is(err, engine.ErrOnlyAdminsInvite),
		errors.Is(err, engine.ErrOnlyAdminsRemoveUsers),
		errors.Is(err, engine.ErrOnlyAdminsUpdateRoles),
		errors.Is(err, engine.ErrOnlyAdminsCreateGroups),
		errors.Is(err, engine.ErrOnlyAdminsDeleteGroups),
		errors.Is(err, engine.ErrOnlyCreatorDeleteGroup),
		errors.Is(err, engine.ErrUserNotProjectMember),
		errors.Is(err, engine.ErrInviterNotMember),
		errors.Is(err, engine.ErrNotInviterOrTarget),
		errors.Is(err, engine.ErrInvitationWrongEmail):
		c.Forbidden(err.Error())
	case errors.Is(err, engine.ErrInvitationPending),
		errors.Is(err, engine.ErrInvitationNotPending),
		errors.Is(err, engine.ErrInvitationExpired),
		errors.Is(err, engine.ErrInvalidTicketField):
		c.BadRequest(err.Error())
	default:
		c.InternalServerError("operation failed")
	}
}
