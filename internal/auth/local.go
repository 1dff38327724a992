package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lberthe/kanbo-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// credential documents share their id with the user they authenticate.
type credential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName,omitempty"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

// LocalProvider keeps credential records in the document store with bcrypt
// password hashes.
type LocalProvider struct {
	store store.Store
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(st store.Store) *LocalProvider {
	return &LocalProvider{store: st}
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*UserHandle, error) {
	cred, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return handleFrom(cred), nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*UserHandle, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.NewString()
	cred := &credential{
		Email:        email,
		PasswordHash: string(hash),
		UserID:       userID,
	}
	err = p.store.Set(ctx, store.CollectionCredentials, userID, map[string]any{
		"email":        cred.Email,
		"passwordHash": cred.PasswordHash,
		"userId":       cred.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	return handleFrom(cred), nil
}

// SignOut is stateless for local credentials; sessions are torn down by the
// session layer reacting to the auth-state event.
func (p *LocalProvider) SignOut(context.Context) error {
	return nil
}

func (p *LocalProvider) UpdateProfile(ctx context.Context, userID, displayName string) error {
	return p.store.Update(ctx, store.CollectionCredentials, userID, map[string]any{
		"displayName": displayName,
	})
}

func (p *LocalProvider) findByEmail(ctx context.Context, email string) (*credential, error) {
	docs, err := p.store.Find(ctx, store.C(store.CollectionCredentials).Where("email", store.OpEqual, email))
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var cred credential
	if err := docs[0].Decode(&cred); err != nil {
		return nil, fmt.Errorf("corrupt credential document: %w", err)
	}
	return &cred, nil
}

func handleFrom(cred *credential) *UserHandle {
	return &UserHandle{
		ID:          cred.UserID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
		PhotoURL:    cred.PhotoURL,
	}
}
