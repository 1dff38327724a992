package handlers

import (
	"context"

	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type ProjectHandler struct {
	manager *engine.Manager
}

func NewProjectHandler(manager *engine.Manager) *ProjectHandler {
	return &ProjectHandler{manager: manager}
}

func (h *ProjectHandler) List(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	projects := eng.Projects()
	response := make([]dto.ProjectResponse, len(projects))
	for i, p := range projects {
		response[i] = projectResponse(p)
	}
	_ = c.JSON(200, response)
}

func (h *ProjectHandler) Get(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	projectID := c.Param("projectId")
	for _, p := range eng.Projects() {
		if p.ID == projectID {
			_ = c.JSON(200, projectResponse(p))
			return
		}
	}
	c.NotFound("project not found")
}

func (h *ProjectHandler) Create(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	id, err := eng.CreateProject(context.Background(), req.Name, req.Description, req.GroupID)
	if err != nil {
		engineError(c, err)
		return
	}

	_ = c.JSON(201, map[string]string{"id": id})
}

func (h *ProjectHandler) Update(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
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
	if req.Settings != nil {
		settings := map[string]any{
			"allowMemberInvites":    req.Settings.AllowMemberInvites,
			"allowTicketAssignment": req.Settings.AllowTicketAssignment,
		}
		if req.Settings.DefaultAssignee != "" {
			settings["defaultAssignee"] = req.Settings.DefaultAssignee
		}
		updates["settings"] = settings
	}
	if len(updates) == 0 {
		c.BadRequest("nothing to update")
		return
	}

	if err := eng.UpdateProject(context.Background(), c.Param("projectId"), updates); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "project updated"})
}

func (h *ProjectHandler) Delete(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.DeleteProject(context.Background(), c.Param("projectId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "project deleted"})
}

func (h *ProjectHandler) Archive(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.ArchiveProject(context.Background(), c.Param("projectId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "project archived"})
}

func (h *ProjectHandler) Restore(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.RestoreProject(context.Background(), c.Param("projectId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "project restored"})
}

func (h *ProjectHandler) Members(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	members, err := eng.GetProjectMembers(c.Param("projectId"))
	if err != nil {
		engineError(c, err)
		return
	}

	response := make([]dto.UserResponse, len(members))
	for i, u := range members {
		response[i] = userResponse(u)
	}
	_ = c.JSON(200, response)
}

func (h *ProjectHandler) RemoveMember(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	err := eng.RemoveUserFromProject(context.Background(), c.Param("projectId"), c.Param("userId"))
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func (h *ProjectHandler) UpdateMemberRole(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.UpdateUserRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		c.BadRequest("invalid role")
		return
	}

	err := eng.UpdateUserRole(context.Background(), c.Param("projectId"), c.Param("userId"), req.Role)
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "role updated"})
}

func (h *ProjectHandler) AssignGroup(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.AssignGroupRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.GroupID == "" {
		c.BadRequest("group_id is required")
		return
	}

	err := eng.AssignGroupToProject(context.Background(), c.Param("projectId"), req.GroupID)
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "group assigned"})
}

func projectResponse(p models.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		CreatedBy:     p.CreatedBy,
		Members:       p.Members,
		InvitedEmails: p.InvitedEmails,
		TeamGroups:    p.TeamGroups,
		Archived:      p.Archived,
		Settings: dto.ProjectSettingsPayload{
			AllowMemberInvites:    p.Settings.AllowMemberInvites,
			AllowTicketAssignment: p.Settings.AllowTicketAssignment,
			DefaultAssignee:       p.Settings.DefaultAssignee,
		},
	}
}
