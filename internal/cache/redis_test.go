package cache

import (
	"context"
	"testing"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return s, NewRedisCache(client, time.Hour)
}

func TestRedisCacheBookings(t *testing.T) {
	_, c := setupRedisCache(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := cacheBooking("VLT-1", day, "10:00")
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	got, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, "Casey", got.CustomerName)
	assert.True(t, day.Equal(got.Date))

	removed, err := c.RemoveBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.RemoveBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRedisCacheSetBookingsReplaces(t *testing.T) {
	_, c := setupRedisCache(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-old", day, "10:00")))
	require.NoError(t, c.SetBookings(ctx, domain.CollectionActive, []*models.Booking{
		cacheBooking("VLT-new", day, "11:00"),
	}))

	_, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := c.GetBookings(ctx, domain.CollectionActive)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VLT-new", got[0].ID)
}

func TestRedisCacheProgress(t *testing.T) {
	_, c := setupRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.GetProgress(ctx, "VLT-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetProgress(ctx, "VLT-1", 33))

	pct, ok, err := c.GetProgress(ctx, "VLT-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 33, pct)
}

func TestRedisCacheDirtySet(t *testing.T) {
	_, c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.MarkDirty(ctx, "VLT-1"))
	require.NoError(t, c.MarkDirty(ctx, "VLT-2"))
	require.NoError(t, c.MarkDirty(ctx, "VLT-1"))

	ids, err := c.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"VLT-1", "VLT-2"}, ids)

	require.NoError(t, c.ClearDirty(ctx, "VLT-1", "VLT-2"))

	ids, err = c.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisCacheDownServer(t *testing.T) {
	s, c := setupRedisCache(t)
	ctx := context.Background()

	s.Close()

	err := c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-1", time.Now(), "10:00"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
