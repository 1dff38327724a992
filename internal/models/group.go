package models

import (
	"slices"
	"time"
)

// A TeamGroup without a ProjectID is "global": it belongs to no single
// project and is administered by its first member.
type TeamGroup struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ProjectID     string    `json:"projectId,omitempty"`
	Members       []string  `json:"members"`
	InvitedEmails []string  `json:"invitedEmails"`
	Color         string    `json:"color"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (g *TeamGroup) IsGlobal() bool {
	return g.ProjectID == ""
}

func (g *TeamGroup) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

func (g *TeamGroup) HasInvitedEmail(email string) bool {
	return slices.Contains(g.InvitedEmails, email)
}
