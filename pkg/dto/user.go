package dto

import "time"

type UserResponse struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	DisplayName string              `json:"display_name"`
	Avatar      *string             `json:"avatar,omitempty"`
	Role        string              `json:"role"`
	Preferences PreferencesResponse `json:"preferences"`
	CreatedAt   time.Time           `json:"created_at"`
	LastLoginAt time.Time           `json:"last_login_at"`
}

type PreferencesResponse struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

type UpdateUserRequest struct {
	DisplayName *string              `json:"display_name,omitempty"`
	Avatar      *string              `json:"avatar,omitempty"`
	Preferences *PreferencesResponse `json:"preferences,omitempty"`
}
