package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nooperation/slutils/internal/config"
)

// RedisSessionStore implements SessionStore on Redis. Sessions are stored
// as JSON with a TTL for automatic cleanup, so logins survive service
// restarts and can be shared by multiple instances.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(cfg config.SessionConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionStore{client: client}, nil
}

// Put stores a session with the given TTL (0 = no expiration).
func (s *RedisSessionStore) Put(ctx context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a session by token.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes a session by token.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func sessionKey(token string) string {
	return "session:" + token
}
