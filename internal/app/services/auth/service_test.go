package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "halfandhalf/internal/domain/auth"
	domainuser "halfandhalf/internal/domain/user"
	"halfandhalf/internal/infra/security"
	"halfandhalf/internal/infra/storage/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.PasswordHasher{Cost: bcrypt.MinCost},
		Tokens:     security.TokenGenerator{},
		SessionTTL: time.Hour,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a resolvable token", func(t *testing.T) {
		svc := newService(t)
		result, err := svc.Register(ctx, RegisterParams{Email: "alice@example.com", Password: "correcthorse"})
		require.NoError(t, err)
		require.NotEmpty(t, result.Token)

		resolved, err := svc.ResolveToken(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, resolved.User.ID)
		assert.False(t, resolved.Session.Anonymous)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Register(ctx, RegisterParams{Email: "alice@example.com", Password: "correcthorse"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, RegisterParams{Email: "ALICE@example.com", Password: "correcthorse"})
		assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Password: "short"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, RegisterParams{Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.Login(ctx, LoginParams{Email: "Alice@Example.com", Password: "correcthorse"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginParams{Email: "ghost@example.com", Password: "correcthorse"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAnonymous(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	result, err := svc.Anonymous(ctx)
	require.NoError(t, err)
	assert.True(t, result.User.Anonymous)
	assert.Empty(t, result.User.Email)

	resolved, err := svc.ResolveToken(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, resolved.Session.Anonymous)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	result, err := svc.Anonymous(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))
	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	assert.NoError(t, svc.Logout(ctx, ""), "blank token is a no-op")
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()

	t.Run("expired session is evicted", func(t *testing.T) {
		svc := newService(t)
		svc.SessionTTL = time.Nanosecond
		result, err := svc.Anonymous(ctx)
		require.NoError(t, err)

		time.Sleep(time.Millisecond)
		_, err = svc.ResolveToken(ctx, result.Token)
		assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.ResolveToken(ctx, "  ")
		assert.ErrorIs(t, err, domainauth.ErrTokenRequired)
	})
}
