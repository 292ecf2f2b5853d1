package keyedstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore implements Store on top of an in-process expiring cache.
// It is the default backend for single-node deployments.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a MemoryStore. Expired entries are also swept
// periodically so the cache does not grow unbounded between accesses.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 30*time.Second),
	}
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
