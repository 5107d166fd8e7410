package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "idem:order:create:7:abc", Key(7, "abc"))
}

func TestMemoryStore_RememberAndExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	_, ok, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remember(ctx, "k", 11))
	id, ok, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(11), id)

	now = now.Add(time.Minute)
	_, ok, err = s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
