package dto

import "time"

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GroupID     string `json:"group_id,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Settings    *ProjectSettingsPayload `json:"settings,omitempty"`
}

type ProjectSettingsPayload struct {
	AllowMemberInvites    bool   `json:"allow_member_invites"`
	AllowTicketAssignment bool   `json:"allow_ticket_assignment"`
	DefaultAssignee       string `json:"default_assignee,omitempty"`
}

type ProjectResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at,omitempty"`
	CreatedBy     string                 `json:"created_by"`
	Members       []string               `json:"members"`
	InvitedEmails []string               `json:"invited_emails"`
	TeamGroups    []string               `json:"team_groups"`
	Archived      bool                   `json:"archived"`
	Settings      ProjectSettingsPayload `json:"settings"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

type AssignGroupRequest struct {
	GroupID string `json:"group_id"`
}
