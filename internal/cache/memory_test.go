package cache

import (
	"context"
	"testing"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheBooking(id string, day time.Time, start string) *models.Booking {
	return &models.Booking{
		ID:           id,
		CustomerName: "Casey",
		Date:         day,
		StartTime:    start,
		Status:       models.StatusConfirmed,
	}
}

func TestMemoryCacheUpsertAndGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := cacheBooking("VLT-1", day, "10:00")
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	got, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, "Casey", got.CustomerName)

	// the cache hands out clones; mutating the result must not leak back
	got.CustomerName = "Mallory"
	again, err := c.GetBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, "Casey", again.CustomerName)
}

func TestMemoryCacheCollectionsAreIsolated(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-1", day, "10:00")))

	_, err := c.GetBooking(ctx, domain.CollectionArchived, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryCacheGetBookingsSorted(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-B", day, "14:00")))
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-A", day.AddDate(0, 0, 1), "09:00")))
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-C", day, "08:00")))

	got, err := c.GetBookings(ctx, domain.CollectionActive)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "VLT-C", got[0].ID)
	assert.Equal(t, "VLT-B", got[1].ID)
	assert.Equal(t, "VLT-A", got[2].ID)
}

func TestMemoryCacheSetBookingsReplaces(t *testing.T) {
	c := NewMemoryCache()
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

func TestMemoryCacheRemoveBooking(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, cacheBooking("VLT-1", day, "10:00")))

	removed, err := c.RemoveBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.RemoveBooking(ctx, domain.CollectionActive, "VLT-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryCacheProgress(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := c.GetProgress(ctx, "VLT-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetProgress(ctx, "VLT-1", 70))

	pct, ok, err := c.GetProgress(ctx, "VLT-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 70, pct)
}

func TestMemoryCacheDirtySet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ids, err := c.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, c.MarkDirty(ctx, "VLT-2"))
	require.NoError(t, c.MarkDirty(ctx, "VLT-1"))
	require.NoError(t, c.MarkDirty(ctx, "VLT-1"))

	ids, err = c.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"VLT-1", "VLT-2"}, ids)

	require.NoError(t, c.ClearDirty(ctx, "VLT-1"))

	ids, err = c.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"VLT-2"}, ids)
}
