package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lberthe/kanbo-api/internal/store"
)

type refreshToken struct {
	UserID    string    `json:"userId"`
	TokenHash string    `json:"tokenHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenService persists hashed refresh tokens in the document store.
type TokenService struct {
	store store.Store
}

func NewTokenService(st store.Store) *TokenService {
	return &TokenService{store: st}
}

func (s *TokenService) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.store.Create(ctx, store.CollectionRefreshTokens, map[string]any{
		"userId":    userID,
		"tokenHash": tokenHash,
		"expiresAt": expiresAt.UTC(),
	})
	return err
}

// ValidateRefreshToken returns the owning user id for a live token hash.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (string, error) {
	docs, err := s.store.Find(ctx, store.C(store.CollectionRefreshTokens).Where("tokenHash", store.OpEqual, tokenHash))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("refresh token not found")
	}

	var token refreshToken
	if err := docs[0].Decode(&token); err != nil {
		return "", err
	}
	if !token.ExpiresAt.After(time.Now()) {
		return "", fmt.Errorf("refresh token expired")
	}
	return token.UserID, nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	docs, err := s.store.Find(ctx, store.C(store.CollectionRefreshTokens).Where("tokenHash", store.OpEqual, tokenHash))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.store.Delete(ctx, store.CollectionRefreshTokens, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	docs, err := s.store.Find(ctx, store.C(store.CollectionRefreshTokens).Where("userId", store.OpEqual, userID))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.store.Delete(ctx, store.CollectionRefreshTokens, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TokenService) CleanupExpired(ctx context.Context) error {
	docs, err := s.store.Find(ctx, store.C(store.CollectionRefreshTokens))
	if err != nil {
		return err
	}

	now := time.Now()
	for _, doc := range docs {
		var token refreshToken
		if err := doc.Decode(&token); err != nil {
			continue
		}
		if token.ExpiresAt.Before(now) {
			_ = s.store.Delete(ctx, store.CollectionRefreshTokens, doc.ID)
		}
	}
	return nil
}
