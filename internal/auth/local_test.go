package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/internal/store/memstore"
)

func TestLocalProvider_SignUpAndSignIn(t *testing.T) {
	p := NewLocalProvider(memstore.New())
	ctx := context.Background()

	handle, err := p.SignUp(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, "alice@example.com", handle.Email)

	signedIn, err := p.SignIn(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, handle.ID, signedIn.ID)
}

func TestLocalProvider_SignUp_WeakPassword(t *testing.T) {
	p := NewLocalProvider(memstore.New())

	_, err := p.SignUp(context.Background(), "alice@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLocalProvider_SignUp_EmailInUse(t *testing.T) {
	p := NewLocalProvider(memstore.New())
	ctx := context.Background()

	_, err := p.SignUp(ctx, "alice@example.com", "first password")
	require.NoError(t, err)

	_, err = p.SignUp(ctx, "alice@example.com", "second password")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestLocalProvider_SignIn_WrongPassword(t *testing.T) {
	p := NewLocalProvider(memstore.New())
	ctx := context.Background()

	_, err := p.SignUp(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "alice@example.com", "wrong password!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider_SignIn_UnknownEmail(t *testing.T) {
	p := NewLocalProvider(memstore.New())

	_, err := p.SignIn(context.Background(), "nobody@example.com", "whatever pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider_UpdateProfile(t *testing.T) {
	p := NewLocalProvider(memstore.New())
	ctx := context.Background()

	handle, err := p.SignUp(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, p.UpdateProfile(ctx, handle.ID, "Alice"))

	signedIn, err := p.SignIn(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "Alice", signedIn.DisplayName)
}
