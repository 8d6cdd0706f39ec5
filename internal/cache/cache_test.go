package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	var got page
	found, err := c.Get(ctx, "docs:v:0", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := page{IDs: []string{"20240115001", "0220240115001"}, Total: 2}
	require.NoError(t, c.Set(ctx, "docs:v:0", want, time.Hour))

	found, err = c.Get(ctx, "docs:v:0", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	assert.Equal(t, int64(0), c.GetVersion(ctx, "docs:version"))
	require.NoError(t, c.IncrementVersion(ctx, "docs:version"))
	require.NoError(t, c.IncrementVersion(ctx, "docs:version"))
	assert.Equal(t, int64(2), c.GetVersion(ctx, "docs:version"))
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseCache(t, NewRedisCache(client))
}

func TestRedisCache_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", page{Total: 1}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got page
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr())
	assert.Error(t, err)
}
