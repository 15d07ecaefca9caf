package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", "hrgate-test", "hrgate-api")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	userID := id.NewUserID()

	token, err := svc.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	got, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateAccessToken(id.NewUserID(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := newTestService()
	other := NewService("different-key", "hrgate-test", "hrgate-api")

	token, err := other.GenerateAccessToken(id.NewUserID(), time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestProofTokenScopeIsolation(t *testing.T) {
	svc := newTestService()
	userID := id.NewUserID()

	proof, err := svc.GenerateProofToken(userID, "cred-abc", 2*time.Minute)
	require.NoError(t, err)

	t.Run("proof token cannot be used as access token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(proof)
		require.Error(t, err)
	})

	t.Run("access token cannot be used as proof", func(t *testing.T) {
		access, err := svc.GenerateAccessToken(userID, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateProofToken(access, userID)
		require.Error(t, err)
	})

	t.Run("proof token bound to its user", func(t *testing.T) {
		_, err := svc.ValidateProofToken(proof, id.NewUserID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("valid proof carries credential id", func(t *testing.T) {
		claims, err := svc.ValidateProofToken(proof, userID)
		require.NoError(t, err)
		assert.Equal(t, "cred-abc", claims.CredentialID)
	})
}
