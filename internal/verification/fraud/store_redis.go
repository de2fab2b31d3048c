package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const fingerprintKeyPrefix = "docverify:fp:"

// RedisStore shares fingerprints across instances.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Remember(ctx context.Context, fingerprint, documentID string) (string, error) {
	key := fingerprintKeyPrefix + fingerprint
	set, err := s.client.SetNX(ctx, key, documentID, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx: %w", err)
	}
	if set {
		return documentID, nil
	}
	first, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return documentID, nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return first, nil
}
