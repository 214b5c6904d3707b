package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

func newTestGate(t *testing.T) (*Gate, *TokenService, repository.RevocationRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	tokens := NewTokenService(signer, 15*time.Minute, 24*time.Hour)
	revoked := repository.NewRevocationRepository(client, time.Second)

	gate := NewGate(signer, revoked, observability.NewMetrics(), zap.NewNop())
	return gate, tokens, revoked, mr
}

func TestGateNoCredential(t *testing.T) {
	gate, _, _, _ := newTestGate(t)

	result := gate.Authenticate(context.Background(), "")
	assert.Equal(t, OutcomeNoCredential, result.Outcome)
	assert.Nil(t, result.Principal)
}

func TestGateValidTokenAttachesPrincipal(t *testing.T) {
	gate, tokens, _, _ := newTestGate(t)

	token, _, err := tokens.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)

	result := gate.Authenticate(context.Background(), token)
	require.Equal(t, OutcomeValid, result.Outcome)
	require.NotNil(t, result.Principal)
	assert.Equal(t, "42", result.Principal.SubjectID)
	assert.Equal(t, domain.RoleUser, result.Principal.Role)
	assert.Equal(t, domain.TokenCategoryAccess, result.Principal.Category)
}

func TestGateExpiredIsDistinguishable(t *testing.T) {
	gate, _, _, _ := newTestGate(t)

	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	shortLived := NewTokenService(signer, time.Millisecond, 24*time.Hour)
	token, _, err := shortLived.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	result := gate.Authenticate(context.Background(), token)
	assert.Equal(t, OutcomeExpired, result.Outcome, "expired must signal the refresh flow, not a plain reject")
	assert.Nil(t, result.Principal)
}

func TestGateTamperedToken(t *testing.T) {
	gate, tokens, _, _ := newTestGate(t)

	token, _, err := tokens.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)

	result := gate.Authenticate(context.Background(), token+"x")
	assert.Equal(t, OutcomeInvalid, result.Outcome)

	result = gate.Authenticate(context.Background(), "not-a-token")
	assert.Equal(t, OutcomeInvalid, result.Outcome)
}

func TestGateRejectsRefreshCategory(t *testing.T) {
	gate, tokens, _, _ := newTestGate(t)

	refreshToken, _, err := tokens.IssueRefreshToken("42", domain.RoleUser)
	require.NoError(t, err)

	result := gate.Authenticate(context.Background(), refreshToken)
	assert.Equal(t, OutcomeInvalid, result.Outcome, "a refresh token must never authenticate a request")
}

func TestGateRevokedToken(t *testing.T) {
	gate, tokens, revoked, _ := newTestGate(t)

	token, expiresAt, err := tokens.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), token, "logout", time.Until(expiresAt)))

	result := gate.Authenticate(context.Background(), token)
	assert.Equal(t, OutcomeRevoked, result.Outcome)
	assert.Nil(t, result.Principal)
}

func TestGateRevocationExpiresWithToken(t *testing.T) {
	gate, tokens, revoked, mr := newTestGate(t)

	token, _, err := tokens.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), token, "logout", time.Minute))

	result := gate.Authenticate(context.Background(), token)
	require.Equal(t, OutcomeRevoked, result.Outcome)

	// Past the entry's TTL the blacklist forgets the token; the token itself
	// is still unexpired here, so it authenticates again.
	mr.FastForward(2 * time.Minute)

	result = gate.Authenticate(context.Background(), token)
	assert.Equal(t, OutcomeValid, result.Outcome)
}

func TestGateStoreOutageFailsClosed(t *testing.T) {
	gate, tokens, _, mr := newTestGate(t)

	token, _, err := tokens.IssueAccessToken("42", domain.RoleUser)
	require.NoError(t, err)

	mr.Close()

	result := gate.Authenticate(context.Background(), token)
	assert.Equal(t, OutcomeInvalid, result.Outcome, "an unreachable store must never read as not-revoked")
	assert.Error(t, result.Err)
	assert.Nil(t, result.Principal)
}
