package handlers

import (
	"context"

	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type TicketHandler struct {
	manager *engine.Manager
}

func NewTicketHandler(manager *engine.Manager) *TicketHandler {
	return &TicketHandler{manager: manager}
}

func (h *TicketHandler) List(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	tickets := eng.Tickets()
	if projectID := c.QueryParam("project_id"); projectID != "" {
		tickets = eng.GetTicketsByProject(projectID)
	}

	response := make([]dto.TicketResponse, len(tickets))
	for i, t := range tickets {
		response[i] = ticketResponse(t)
	}
	_ = c.JSON(200, response)
}

func (h *TicketHandler) Create(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateTicketRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Title == "" || req.ProjectID == "" {
		c.BadRequest("title and project_id are required")
		return
	}

	id, err := eng.CreateTicket(context.Background(), engine.TicketInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		ProjectID:     req.ProjectID,
		Assignee:      req.Assignee,
		AssignedGroup: req.AssignedGroup,
		Tags:          req.Tags,
		DueDate:       req.DueDate,
	})
	if err != nil {
		engineError(c, err)
		return
	}

	_ = c.JSON(201, map[string]string{"id": id})
}

func (h *TicketHandler) Update(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.UpdateTicketRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if req.DueDate != nil {
		updates["dueDate"] = req.DueDate.UTC()
	}
	if len(updates) == 0 {
		c.BadRequest("nothing to update")
		return
	}

	if err := eng.UpdateTicket(context.Background(), c.Param("ticketId"), updates); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "ticket updated"})
}

func (h *TicketHandler) Delete(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	if err := eng.DeleteTicket(context.Background(), c.Param("ticketId")); err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "ticket deleted"})
}

// Assign routes to a user or group assignment depending on which id the
// body carries. Exactly one of the two must be set.
func (h *TicketHandler) Assign(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.AssignTicketRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if (req.UserID == "") == (req.GroupID == "") {
		c.BadRequest("exactly one of user_id or group_id is required")
		return
	}

	ticketID := c.Param("ticketId")
	var err error
	if req.UserID != "" {
		err = eng.AssignTicketToUser(context.Background(), ticketID, req.UserID)
	} else {
		err = eng.AssignTicketToGroup(context.Background(), ticketID, req.GroupID)
	}
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, map[string]string{"message": "ticket assigned"})
}

func (h *TicketHandler) AutoAssign(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	assigned, err := eng.AutoAssignTickets(context.Background(), c.Param("projectId"))
	if err != nil {
		engineError(c, err)
		return
	}
	_ = c.JSON(200, dto.AutoAssignResponse{Assigned: assigned})
}

func ticketResponse(t models.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Assignee:      t.Assignee,
		AssignedGroup: t.AssignedGroup,
		ProjectID:     t.ProjectID,
		Priority:      t.Priority,
		Tags:          t.Tags,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		DueDate:       t.DueDate,
	}
}
