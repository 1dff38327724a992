package dto

import "time"

type CreateInvitationRequest struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	TargetID  string    `json:"target_id"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
