package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// TicketInput carries the caller-supplied fields of a new ticket. Zero
// values for Status and Priority fall back to todo/medium.
type TicketInput struct {
	Title         string
	Description   string
	Status        string
	Priority      string
	ProjectID     string
	Assignee      string
	AssignedGroup string
	Tags          []string
	DueDate       *time.Time
}

func (e *Engine) CreateTicket(ctx context.Context, in TicketInput) (string, error) {
	if err := e.requireUser(); err != nil {
		return "", err
	}
	if _, ok := e.findProject(in.ProjectID); !ok {
		return "", ErrProjectNotFound
	}

	status := in.Status
	if status == "" {
		status = models.TicketStatusTodo
	}
	if !models.ValidTicketStatus(status) {
		return "", fmt.Errorf("%w: status %q", ErrInvalidTicketField, status)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return "", fmt.Errorf("%w: priority %q", ErrInvalidTicketField, priority)
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	now := e.now().UTC()
	data := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"status":      status,
		"priority":    priority,
		"projectId":   in.ProjectID,
		"tags":        tags,
		"createdAt":   now,
		"updatedAt":   now,
	}
	// Empty optionals are left out entirely rather than stored as empty
	// strings, so assignment checks can test for key absence.
	if in.Assignee != "" {
		data["assignee"] = in.Assignee
	}
	if in.AssignedGroup != "" {
		data["assignedGroup"] = in.AssignedGroup
	}
	if in.DueDate != nil {
		data["dueDate"] = in.DueDate.UTC()
	}

	id, err := e.store.Create(ctx, store.CollectionTickets, data)
	if err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	return id, nil
}

// UpdateTicket applies a partial update. nil values delete the field, which
// is how an assignee is cleared.
func (e *Engine) UpdateTicket(ctx context.Context, ticketID string, updates map[string]any) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findTicket(ticketID); !ok {
		return ErrTicketNotFound
	}
	if s, ok := updates["status"].(string); ok && !models.ValidTicketStatus(s) {
		return fmt.Errorf("%w: status %q", ErrInvalidTicketField, s)
	}
	if p, ok := updates["priority"].(string); ok && !models.ValidPriority(p) {
		return fmt.Errorf("%w: priority %q", ErrInvalidTicketField, p)
	}

	patch := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		patch[k] = v
	}
	patch["updatedAt"] = e.now().UTC()
	return e.store.Update(ctx, store.CollectionTickets, ticketID, patch)
}

func (e *Engine) DeleteTicket(ctx context.Context, ticketID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findTicket(ticketID); !ok {
		return ErrTicketNotFound
	}
	return e.store.Delete(ctx, store.CollectionTickets, ticketID)
}

func (e *Engine) GetTicketsByProject(projectID string) []models.Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []models.Ticket
	for _, t := range e.tickets {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

// AssignTicketToUser sets the assignee and clears any group assignment.
func (e *Engine) AssignTicketToUser(ctx context.Context, ticketID, userID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findTicket(ticketID); !ok {
		return ErrTicketNotFound
	}
	return e.store.Update(ctx, store.CollectionTickets, ticketID, map[string]any{
		"assignee":      userID,
		"assignedGroup": nil,
		"updatedAt":     e.now().UTC(),
	})
}

// AssignTicketToGroup sets the assigned group and clears any user
// assignment.
func (e *Engine) AssignTicketToGroup(ctx context.Context, ticketID, groupID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if _, ok := e.findTicket(ticketID); !ok {
		return ErrTicketNotFound
	}
	return e.store.Update(ctx, store.CollectionTickets, ticketID, map[string]any{
		"assignee":      nil,
		"assignedGroup": groupID,
		"updatedAt":     e.now().UTC(),
	})
}

// AutoAssignTickets distributes the project's unassigned tickets over its
// members round-robin, in mirror order. Current workload is deliberately
// ignored; the count of rewritten tickets is returned.
func (e *Engine) AutoAssignTickets(ctx context.Context, projectID string) (int, error) {
	if err := e.requireUser(); err != nil {
		return 0, err
	}
	project, ok := e.findProject(projectID)
	if !ok {
		return 0, ErrProjectNotFound
	}
	if len(project.Members) == 0 {
		return 0, nil
	}

	var unassigned []models.Ticket
	for _, t := range e.GetTicketsByProject(projectID) {
		if t.Unassigned() {
			unassigned = append(unassigned, t)
		}
	}

	assigned := 0
	for i, t := range unassigned {
		member := project.Members[i%len(project.Members)]
		err := e.store.Update(ctx, store.CollectionTickets, t.ID, map[string]any{
			"assignee":  member,
			"updatedAt": e.now().UTC(),
		})
		if err != nil {
			return assigned, fmt.Errorf("auto-assign ticket %s: %w", t.ID, err)
		}
		assigned++
	}
	return assigned, nil
}

func (e *Engine) findTicket(id string) (models.Ticket, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.tickets {
		if t.ID == id {
			return t, true
		}
	}
	return models.Ticket{}, false
}
