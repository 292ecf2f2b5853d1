package keyedstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	_, found, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := s.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "v", 20*time.Millisecond))

	time.Sleep(50 * time.Millisecond)

	exists, err := s.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists, "entry should expire after its TTL")
}

func TestMemoryStoreSetResetsTTL(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v1", 30*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "k", "v2", 100*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found, "rewrite should reset the TTL")
	assert.Equal(t, "v2", v)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, "k"))
}
