package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"jailroster/pkg/domain"
)

const sessionKeyPrefix = "jailroster:session:"

// RedisSessionStore keeps sessions in Redis with TTL.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Put writes the session with TTL.
func (s *RedisSessionStore) Put(session domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err()
}

// Get resolves a session id.
func (s *RedisSessionStore) Get(id string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

// Delete removes a session.
func (s *RedisSessionStore) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
