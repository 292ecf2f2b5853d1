package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnsiteCounter_IncrementDecrement(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	c := NewOnsiteCounter(fs)

	n, err := c.Increment(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Increment(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Decrement(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOnsiteCounter_ClampsAtZero(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	c := NewOnsiteCounter(fs)

	for i := 0; i < 3; i++ {
		n, err := c.Decrement(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}

	n, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOnsiteCounter_SetClampsNegative(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	c := NewOnsiteCounter(fs)

	require.NoError(t, c.Set(5))
	n, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, c.Set(-3))
	n, err = c.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOnsiteCounter_WriteFailurePropagates(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.failSetCounter = true
	c := NewOnsiteCounter(fs)

	_, err := c.Increment(nil)
	require.Error(t, err)
}
