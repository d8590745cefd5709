package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewService(newTestJWTManager(), client), mr
}

func TestGenerateTokens_StoresRefreshID(t *testing.T) {
	svc, mr := newTestAuthService(t)
	userID := uuid.New().String()

	pair, err := svc.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.jwt.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, mr.Exists(refreshKey(userID, claims.TokenID)))
}

func TestRefreshTokens_RotatesToken(t *testing.T) {
	svc, mr := newTestAuthService(t)
	userID := uuid.New().String()

	pair, err := svc.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)
	oldClaims, err := svc.jwt.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	newPair, err := svc.RefreshTokens(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// The spent token id is gone, the new one is stored.
	assert.False(t, mr.Exists(refreshKey(userID, oldClaims.TokenID)))
	newClaims, err := svc.jwt.ValidateRefreshToken(newPair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, mr.Exists(refreshKey(userID, newClaims.TokenID)))

	// Replaying the old token fails.
	_, err = svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.Error(t, err)
}

func TestRefreshTokens_RejectsGarbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.RefreshTokens(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestLogout_RevokesAllRefreshTokens(t *testing.T) {
	svc, mr := newTestAuthService(t)
	userID := uuid.New().String()

	first, err := svc.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), userID))

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := svc.RefreshTokens(context.Background(), token)
		assert.Error(t, err)
	}
	assert.Empty(t, mr.Keys())
}

func TestRefreshToken_ExpiresFromStore(t *testing.T) {
	svc, mr := newTestAuthService(t)
	userID := uuid.New().String()

	pair, err := svc.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)

	mr.FastForward(8 * 24 * time.Hour)

	_, err = svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.Error(t, err)
}
