package auth

import (
	"context"
	"errors"
)

// Provider errors are returned verbatim to callers; the session layer never
// wraps or translates them.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// UserHandle is the opaque identity the provider hands back on success.
type UserHandle struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Provider is the external authentication service surface: email/password
// credentials only.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*UserHandle, error)
	SignUp(ctx context.Context, email, password string) (*UserHandle, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, userID, displayName string) error
}
