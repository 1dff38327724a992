package models

import (
	"slices"
	"time"
)

type ProjectSettings struct {
	AllowMemberInvites    bool   `json:"allowMemberInvites"`
	AllowTicketAssignment bool   `json:"allowTicketAssignment"`
	DefaultAssignee       string `json:"defaultAssignee,omitempty"`
}

type Project struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	Members       []string        `json:"members"`
	InvitedEmails []string        `json:"invitedEmails"`
	TeamGroups    []string        `json:"teamGroups"`
	Archived      bool            `json:"archived"`
	Settings      ProjectSettings `json:"settings"`
}

func (p *Project) HasMember(userID string) bool {
	return slices.Contains(p.Members, userID)
}

func (p *Project) HasGroup(groupID string) bool {
	return slices.Contains(p.TeamGroups, groupID)
}

func (p *Project) HasInvitedEmail(email string) bool {
	return slices.Contains(p.InvitedEmails, email)
}
