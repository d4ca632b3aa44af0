package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "interview:session:"
	sessionScanPattern = sessionKeyPrefix + "*"
	sessionScanBatch   = 100

	// DefaultSessionTTL bounds how long an idle session survives in Redis.
	DefaultSessionTTL = 24 * time.Hour
)

// RedisStorage persists interview sessions in Redis as JSON values.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetSession returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) GetSession(ctx context.Context, userID string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get session from redis", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.log.Error("failed to decode session", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return &session, nil
}

// SaveSession stores the session and refreshes its TTL.
func (s *RedisStorage) SaveSession(ctx context.Context, session *Session) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(session)
	if err != nil {
		s.log.Error("failed to encode session", slog.String("user_id", session.UserID), slog.Any("error", err))
		return err
	}

	if err := s.client.Set(ctx, sessionKey(session.UserID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", slog.String("user_id", session.UserID), slog.Any("error", err))
		return err
	}

	return nil
}

// DeleteSession removes the stored session for the given user.
func (s *RedisStorage) DeleteSession(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.log.Error("failed to delete session", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

// ListSessions retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) ListSessions(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanBatch).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", slog.Any("error", err))
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch session", slog.String("key", key), slog.Any("error", err))
				return nil, err
			}

			var session Session
			if err := json.Unmarshal(data, &session); err != nil {
				s.log.Warn("skipping undecodable session", slog.String("key", key), slog.Any("error", err))
				continue
			}
			result = append(result, &session)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}
