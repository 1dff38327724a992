package models

import "time"

const (
	InvitationTypeProject = "project"
	InvitationTypeGroup   = "group"
)

// Status only moves forward: pending is the sole non-terminal state.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
	InvitationStatusExpired  = "expired"
)

// InvitationTTL is how long an invitation stays acceptable after creation.
const InvitationTTL = 7 * 24 * time.Hour

type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	TargetID  string    `json:"targetId"`
	InvitedBy string    `json:"invitedBy"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt reports whether the invitation is past its expiry at the given
// instant. An expiry exactly equal to now counts as expired.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
