package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/internal/store"
	"github.com/lberthe/kanbo-api/internal/store/memstore"
)

func TestTokenService_StoreAndValidate(t *testing.T) {
	svc := NewTokenService(memstore.New())
	ctx := context.Background()

	hash := HashToken("refresh-1")
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", hash, time.Now().Add(time.Hour)))

	userID, err := svc.ValidateRefreshToken(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenService_Validate_Unknown(t *testing.T) {
	svc := NewTokenService(memstore.New())

	_, err := svc.ValidateRefreshToken(context.Background(), HashToken("never-stored"))
	assert.Error(t, err)
}

func TestTokenService_Validate_Expired(t *testing.T) {
	svc := NewTokenService(memstore.New())
	ctx := context.Background()

	hash := HashToken("stale")
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", hash, time.Now().Add(-time.Minute)))

	_, err := svc.ValidateRefreshToken(ctx, hash)
	assert.Error(t, err)
}

func TestTokenService_Revoke(t *testing.T) {
	svc := NewTokenService(memstore.New())
	ctx := context.Background()

	hash := HashToken("refresh-1")
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", hash, time.Now().Add(time.Hour)))
	require.NoError(t, svc.RevokeRefreshToken(ctx, hash))

	_, err := svc.ValidateRefreshToken(ctx, hash)
	assert.Error(t, err)
}

func TestTokenService_RevokeAllUserTokens(t *testing.T) {
	st := memstore.New()
	svc := NewTokenService(st)
	ctx := context.Background()

	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", HashToken("a"), time.Now().Add(time.Hour)))
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", HashToken("b"), time.Now().Add(time.Hour)))
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-2", HashToken("c"), time.Now().Add(time.Hour)))

	require.NoError(t, svc.RevokeAllUserTokens(ctx, "user-1"))

	_, err := svc.ValidateRefreshToken(ctx, HashToken("a"))
	assert.Error(t, err)
	_, err = svc.ValidateRefreshToken(ctx, HashToken("b"))
	assert.Error(t, err)

	otherUser, err := svc.ValidateRefreshToken(ctx, HashToken("c"))
	require.NoError(t, err)
	assert.Equal(t, "user-2", otherUser)
}

func TestTokenService_CleanupExpired(t *testing.T) {
	st := memstore.New()
	svc := NewTokenService(st)
	ctx := context.Background()

	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", HashToken("live"), time.Now().Add(time.Hour)))
	require.NoError(t, svc.StoreRefreshToken(ctx, "user-1", HashToken("dead"), time.Now().Add(-time.Hour)))

	require.NoError(t, svc.CleanupExpired(ctx))

	docs, err := st.Find(ctx, store.C(store.CollectionRefreshTokens))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
