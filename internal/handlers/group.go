package handlers

import (
	"context"

	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type GroupHandler struct {
	manager *engine.Manager
}

func NewGroupHandler(manager *engine.Manager) *GroupHandler {
	return &GroupHandler{manager: manager}
}

func (h *GroupHandler) List(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	groups := eng.TeamGroups()
	response := make([]dto.GroupResponse, len(groups))
	for i, g := range groups {
		response[i] = groupResponse(g)
	}
	_ = c.JSON(200, response)
}

func (h *GroupHandler) Create(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	id, err := eng.CreateTeamGroup(context.Background(), req.Name, req.Description, req.Color, req.ProjectID)
	if err != nil {
		engineError(c, err)
		return
	}

	_ = c.JSON(201, map[string]string{"id": id})
}

func (h *GroupHandler) Update(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) == 0 {
		c.BadRequest("nothing to update")
		return
	}

	if err := eng.UpdateTeamGroup(context.Background(), c.Param("groupId"), updates); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "group updated"})
}

func (h *GroupHandler) Delete(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.DeleteTeamGroup(context.Background(), c.Param("groupId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "group deleted"})
}

func (h *GroupHandler) AddMember(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.GroupMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.UserID == "" {
		c.BadRequest("user_id is required")
		return
	}

	if err := eng.AddUserToGroup(context.Background(), c.Param("groupId"), req.UserID); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "member added"})
}

func (h *GroupHandler) RemoveMember(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	err := eng.RemoveUserFromGroup(context.Background(), c.Param("groupId"), c.Param("userId"))
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func groupResponse(g models.TeamGroup) dto.GroupResponse {
	return dto.GroupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		ProjectID:     g.ProjectID,
		Members:       g.Members,
		InvitedEmails: g.InvitedEmails,
		Color:         g.Color,
		CreatedAt:     g.CreatedAt,
	}
}
