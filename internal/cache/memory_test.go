package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAJJJB/subscription-tracker/internal/cache"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := cache.NewMemoryStore()

	require.NoError(t, s.Save(ctx, "tok", "operator", time.Hour))

	id, err := s.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "operator", id)

	require.NoError(t, s.Delete(ctx, "tok"))
	_, err = s.Lookup(ctx, "tok")
	assert.ErrorIs(t, err, cache.ErrTokenNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)}
	s := cache.NewMemoryStoreWithClock(c.now)

	require.NoError(t, s.Save(ctx, "tok", "operator", time.Hour))

	c.t = c.t.Add(59 * time.Minute)
	_, err := s.Lookup(ctx, "tok")
	require.NoError(t, err)

	c.t = c.t.Add(time.Minute)
	_, err = s.Lookup(ctx, "tok")
	assert.ErrorIs(t, err, cache.ErrTokenNotFound)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_DeleteUnknownIsNoop(t *testing.T) {
	assert.NoError(t, cache.NewMemoryStore().Delete(context.Background(), "missing"))
}
