package handlers

import (
	"context"
	"log"

	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/services"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type InvitationHandler struct {
	manager *engine.Manager
	email   *services.EmailService
}

func NewInvitationHandler(manager *engine.Manager, email *services.EmailService) *InvitationHandler {
	return &InvitationHandler{manager: manager, email: email}
}

// List returns the invitations addressed to the caller.
func (h *InvitationHandler) List(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	invitations := eng.Invitations()
	response := make([]dto.InvitationResponse, len(invitations))
	for i, inv := range invitations {
		response[i] = dto.InvitationResponse{
			ID:        inv.ID,
			Email:     inv.Email,
			Type:      inv.Type,
			TargetID:  inv.TargetID,
			InvitedBy: inv.InvitedBy,
			Status:    inv.Status,
			Message:   inv.Message,
			CreatedAt: inv.CreatedAt,
			ExpiresAt: inv.ExpiresAt,
		}
	}
	_ = c.JSON(200, response)
}

func (h *InvitationHandler) InviteToProject(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	projectID := c.Param("projectId")
	id, err := eng.InviteUserToProject(context.Background(), projectID, req.Email, req.Message)
	if err != nil {
		engineError(c, err)
		return
	}

	// Mail delivery is best effort; an SMTP failure never undoes the
	// invitation.
	for _, p := range eng.Projects() {
		if p.ID == projectID {
			if err := h.email.SendProjectInvite(req.Email, p.Name, eng.User().DisplayName, req.Message); err != nil {
				log.Printf("invitation mail to %s not sent: %v", req.Email, err)
			}
			break
		}
	}

	_ = c.JSON(201, map[string]string{"id": id})
}

func (h *InvitationHandler) InviteToGroup(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	groupID := c.Param("groupId")
	id, err := eng.InviteUserToGroup(context.Background(), groupID, req.Email, req.Message)
	if err != nil {
		engineError(c, err)
		return
	}

	for _, g := range eng.TeamGroups() {
		if g.ID == groupID {
			if err := h.email.SendGroupInvite(req.Email, g.Name, eng.User().DisplayName, req.Message); err != nil {
				log.Printf("invitation mail to %s not sent: %v", req.Email, err)
			}
			break
		}
	}

	_ = c.JSON(201, map[string]string{"id": id})
}

func (h *InvitationHandler) Accept(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.AcceptInvitation(context.Background(), c.Param("invitationId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "invitation accepted"})
}

func (h *InvitationHandler) Decline(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.DeclineInvitation(context.Background(), c.Param("invitationId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "invitation declined"})
}

func (h *InvitationHandler) Delete(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.DeleteInvitation(context.Background(), c.Param("invitationId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "invitation deleted"})
}
