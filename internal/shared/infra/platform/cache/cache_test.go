package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a", Count: 2}, 0))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Name: "a", Count: 2}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, _ = c.Get(ctx, "k", &got)
	assert.False(t, ok)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", entry{Name: "s"}, time.Second))
	require.NoError(t, c.Set(ctx, "default", entry{Name: "d"}, 0))

	now = now.Add(2 * time.Second)
	var got entry
	ok, _ := c.Get(ctx, "short", &got)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "default", &got)
	assert.True(t, ok)

	c.purge()
	c.mu.RLock()
	assert.Len(t, c.store, 1)
	c.mu.RUnlock()
}

func TestAsyncHelpers(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()
	log := zap.NewNop()

	<-AsyncSet(c, "k", entry{Name: "async"}, 0, log)
	var got entry
	ok, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "async", got.Name)

	<-AsyncDelete(c, "k", log)
	ok, _ = c.Get(context.Background(), "k", &got)
	assert.False(t, ok)

	// sin caché no hace nada
	<-AsyncSet(nil, "k", entry{}, 0, log)
	<-AsyncDelete(nil, "k", log)
}
