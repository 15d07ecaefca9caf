//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/require"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
	"hrgate/pkg/testutil/containers"
)

func newRedisStore(t *testing.T, ttl time.Duration) *RedisSessionStore {
	t.Helper()
	rc := containers.NewRedisContainer(t)
	return NewRedisSessionStore(rc.Client, ttl)
}

func TestRedisSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t, time.Minute)
	userID := id.NewUserID()

	session := models.CeremonySession{
		Kind:      models.CeremonyVerification,
		UserID:    userID,
		Data:      webauthn.SessionData{Challenge: "challenge"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Take(ctx, userID, models.CeremonyVerification)
	require.NoError(t, err)
	require.Equal(t, "challenge", got.Data.Challenge)
	require.Equal(t, userID, got.UserID)

	// Take consumed the session; a replay must fail.
	_, err = store.Take(ctx, userID, models.CeremonyVerification)
	require.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestRedisSessionKindIsolation(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t, time.Minute)
	userID := id.NewUserID()

	require.NoError(t, store.Save(ctx, models.CeremonySession{
		Kind:   models.CeremonyEnrollment,
		UserID: userID,
		Data:   webauthn.SessionData{Challenge: "reg"},
	}))

	_, err := store.Take(ctx, userID, models.CeremonyVerification)
	require.ErrorIs(t, err, sentinel.ErrExpired)

	got, err := store.Take(ctx, userID, models.CeremonyEnrollment)
	require.NoError(t, err)
	require.Equal(t, "reg", got.Data.Challenge)
}

func TestRedisSessionDelete(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t, time.Minute)
	userID := id.NewUserID()

	require.NoError(t, store.Save(ctx, models.CeremonySession{
		Kind:   models.CeremonyEnrollment,
		UserID: userID,
		Data:   webauthn.SessionData{Challenge: "reg"},
	}))

	require.NoError(t, store.Delete(ctx, userID, models.CeremonyEnrollment))

	_, err := store.Take(ctx, userID, models.CeremonyEnrollment)
	require.ErrorIs(t, err, sentinel.ErrExpired)

	// Deleting an absent session is a no-op.
	require.NoError(t, store.Delete(ctx, userID, models.CeremonyEnrollment))
}

func TestRedisSessionExpiry(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t, time.Second)
	userID := id.NewUserID()

	require.NoError(t, store.Save(ctx, models.CeremonySession{
		Kind:   models.CeremonyVerification,
		UserID: userID,
		Data:   webauthn.SessionData{Challenge: "challenge"},
	}))

	time.Sleep(1500 * time.Millisecond)

	_, err := store.Take(ctx, userID, models.CeremonyVerification)
	require.ErrorIs(t, err, sentinel.ErrExpired)
}
