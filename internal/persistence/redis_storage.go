package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const storageScanBatch = 1000

// RedisStorage adapts a Redis client to fiber.Storage. Keys are namespaced by
// prefix so Reset never touches foreign data.
type RedisStorage struct {
	db     redis.UniversalClient
	prefix string
}

// NewRedisStorage wraps client, storing every key under prefix.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	return &RedisStorage{db: client, prefix: prefix}
}

// Get returns nil for empty keys and missing values.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	val, err := s.db.Get(context.Background(), s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val with expiration. Zero duration means no expiration.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.db.Set(context.Background(), s.prefix+key, val, exp).Err()
}

// Delete removes a key. Empty keys are ignored.
func (s *RedisStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Del(context.Background(), s.prefix+key).Err()
}

// Reset deletes every key under the storage prefix.
func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := s.db.Scan(ctx, cursor, s.prefix+"*", storageScanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.db.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close is a no-op; the client is owned by Redis.
func (s *RedisStorage) Close() error {
	return nil
}
