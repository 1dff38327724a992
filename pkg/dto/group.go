package dto

import "time"

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	ProjectID   string `json:"project_id,omitempty"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type GroupResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ProjectID     string    `json:"project_id,omitempty"`
	Members       []string  `json:"members"`
	InvitedEmails []string  `json:"invited_emails"`
	Color         string    `json:"color"`
	CreatedAt     time.Time `json:"created_at"`
}

type GroupMemberRequest struct {
	UserID string `json:"user_id"`
}
