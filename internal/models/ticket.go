package models

import "time"

const (
	TicketStatusTodo       = "todo"
	TicketStatusInProgress = "in-progress"
	TicketStatusDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Assignee and AssignedGroup are mutually exclusive by convention: assigning
// one clears the other.
type Ticket struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Assignee      string     `json:"assignee,omitempty"`
	AssignedGroup string     `json:"assignedGroup,omitempty"`
	ProjectID     string     `json:"projectId"`
	Priority      string     `json:"priority"`
	Tags          []string   `json:"tags"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

func (t *Ticket) Unassigned() bool {
	return t.Assignee == "" && t.AssignedGroup == ""
}

func ValidTicketStatus(s string) bool {
	return s == TicketStatusTodo || s == TicketStatusInProgress || s == TicketStatusDone
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityUrgent
}
