package handlers

import (
	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/m1z23r/drift/pkg/drift"
)

type SSEHandler struct {
	manager *engine.Manager
}

func NewSSEHandler(manager *engine.Manager) *SSEHandler {
	return &SSEHandler{manager: manager}
}

// Stream pushes every mirror update of the caller's engine as a server-sent
// event named after the collection. On connect each mirror's current state
// is sent first, so a client never starts from a blank screen.
func (h *SSEHandler) Stream(c *drift.Context) {
	eng, ok := engineFor(c, h.manager)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	if err := sseCtx.SendJSON(map[string]string{"type": "connected"}, "system", ""); err != nil {
		return
	}

	events, cancel := eng.Events()
	defer cancel()

	initial := []engine.Event{
		{Collection: "projects", Data: eng.Projects()},
		{Collection: "tickets", Data: eng.Tickets()},
		{Collection: "teamGroups", Data: eng.TeamGroups()},
		{Collection: "users", Data: eng.ProjectUsers()},
		{Collection: "invitations", Data: eng.Invitations()},
	}
	for _, ev := range initial {
		if err := sseCtx.SendJSON(ev.Data, ev.Collection, ""); err != nil {
			return
		}
	}

	done := c.Request.Context().Done()
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if err := sseCtx.SendJSON(ev.Data, ev.Collection, ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
