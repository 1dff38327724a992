package dto

import "time"

type CreateTicketRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status,omitempty"`
	Priority      string     `json:"priority,omitempty"`
	ProjectID     string     `json:"project_id"`
	Assignee      string     `json:"assignee,omitempty"`
	AssignedGroup string     `json:"assigned_group,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

type UpdateTicketRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type TicketResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Assignee      string     `json:"assignee,omitempty"`
	AssignedGroup string     `json:"assigned_group,omitempty"`
	ProjectID     string     `json:"project_id"`
	Priority      string     `json:"priority"`
	Tags          []string   `json:"tags"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

type AssignTicketRequest struct {
	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

type AutoAssignResponse struct {
	Assigned int `json:"assigned"`
}
