package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlandgames/gathering/internal/database"
)

func newStore(t *testing.T) *database.Service {
	t.Helper()
	store, err := database.NewService(filepath.Join(t.TempDir(), "auth.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Bootstrap(context.Background()))
	return store
}

func TestReconcileAdminIsDeclarative(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first, err := ReconcileAdmin(ctx, store, "admin@x.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, database.RoleAdmin, first.Role)
	assert.True(t, CheckPassword("secret123", first.PasswordHash))

	second, err := ReconcileAdmin(ctx, store, "admin@x.test", "rotated")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, CheckPassword("secret123", second.PasswordHash))
	assert.True(t, CheckPassword("rotated", second.PasswordHash))
}

func TestReconcileAdminRequiresCredentials(t *testing.T) {
	store := newStore(t)

	_, err := ReconcileAdmin(context.Background(), store, " ", "pw")
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
	_, err = ReconcileAdmin(context.Background(), store, "admin@x.test", "")
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := ReconcileAdmin(ctx, store, "admin@x.test", "secret123")
	require.NoError(t, err)

	tokens := NewTokenManager("test-secret", time.Hour)
	authenticator := NewAuthenticator(store, tokens)

	token, user, err := authenticator.Authenticate(ctx, "admin@x.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "admin@x.test", user.Email)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = authenticator.Authenticate(ctx, "ADMIN@X.TEST", "secret123")
	assert.NoError(t, err)

	_, _, err = authenticator.Authenticate(ctx, "admin@x.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = authenticator.Authenticate(ctx, "nobody@x.test", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWithoutSecret(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := ReconcileAdmin(ctx, store, "admin@x.test", "secret123")
	require.NoError(t, err)

	_, _, err = NewAuthenticator(store, NewTokenManager("", 0)).Authenticate(ctx, "admin@x.test", "secret123")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestAuthenticateHashesForUnknownUsers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := ReconcileAdmin(ctx, store, "admin@x.test", "secret123")
	require.NoError(t, err)

	var hashes []string
	orig := checkPassword
	checkPassword = func(password, encoded string) bool {
		hashes = append(hashes, encoded)
		return orig(password, encoded)
	}
	t.Cleanup(func() { checkPassword = orig })

	authenticator := NewAuthenticator(store, NewTokenManager("test-secret", time.Hour))

	_, _, err = authenticator.Authenticate(ctx, "nobody@x.test", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hashes, 1)
	assert.Equal(t, dummyHash(), hashes[0])
	assert.NotEmpty(t, hashes[0])

	_, _, err = authenticator.Authenticate(ctx, "admin@x.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hashes, 2)
	assert.NotEqual(t, dummyHash(), hashes[1])
}
