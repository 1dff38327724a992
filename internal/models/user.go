package models

import "time"

// Roles are contextual to a project, not global.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// CurrentSchemaVersion marks user documents that have been through the
// one-time backfill migration.
const CurrentSchemaVersion = 2

type Preferences struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         "light",
		Language:      "fr",
		Notifications: true,
	}
}

type User struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	DisplayName   string      `json:"displayName"`
	Avatar        *string     `json:"avatar,omitempty"`
	Role          string      `json:"role,omitempty"`
	Preferences   Preferences `json:"preferences"`
	SchemaVersion int         `json:"schemaVersion,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	LastLoginAt   time.Time   `json:"lastLoginAt"`
}
