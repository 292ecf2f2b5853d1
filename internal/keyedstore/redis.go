package keyedstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gatewatch/gatewatch-go/internal/errors"
)

// RedisStore implements Store on a Redis backend, for deployments where the
// pipeline and the query surface run in separate processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.New(err).
			Component("keyedstore").
			Category(errors.CategoryKeyedStore).
			Context("operation", "ping").
			Context("addr", addr).
			Build()
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return storeError(err, "set", key)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError(err, "get", key)
	}
	return v, true, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, storeError(err, "exists", key)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return storeError(err, "delete", key)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func storeError(err error, operation, key string) error {
	return errors.New(err).
		Component("keyedstore").
		Category(errors.CategoryKeyedStore).
		Context("operation", operation).
		Context("key", key).
		Build()
}
