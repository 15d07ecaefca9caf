package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

// RedisSessionStore keeps in-flight ceremony sessions in Redis with a TTL.
// One session per (user, kind): starting a new ceremony overwrites the
// previous one, and finishing consumes it.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(userID id.UserID, kind models.CeremonyKind) string {
	return fmt.Sprintf("biometric:session:%s:%s", kind, userID)
}

func (s *RedisSessionStore) Save(ctx context.Context, session models.CeremonySession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal ceremony session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.UserID, session.Kind), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save ceremony session: %w", err)
	}
	return nil
}

// Take loads and deletes the session in one pass so it cannot be replayed.
func (s *RedisSessionStore) Take(ctx context.Context, userID id.UserID, kind models.CeremonyKind) (models.CeremonySession, error) {
	key := sessionKey(userID, kind)
	payload, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CeremonySession{}, sentinel.ErrExpired
	}
	if err != nil {
		return models.CeremonySession{}, fmt.Errorf("load ceremony session: %w", err)
	}
	var session models.CeremonySession
	if err := json.Unmarshal(payload, &session); err != nil {
		return models.CeremonySession{}, fmt.Errorf("unmarshal ceremony session: %w", err)
	}
	if session.Kind != kind || session.UserID != userID {
		return models.CeremonySession{}, sentinel.ErrInvalidState
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, userID id.UserID, kind models.CeremonyKind) error {
	return s.client.Del(ctx, sessionKey(userID, kind)).Err()
}
