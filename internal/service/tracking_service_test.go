package service

import (
	"context"
	"os"
	"testing"
	"time"

	"valetcore/internal/cache"
	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracking(t *testing.T) (*TrackingService, *cache.MemoryCache) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	c := cache.NewMemoryCache()
	return NewTrackingService(c, &logger), c
}

func trackable(id string, status models.Status) *models.Booking {
	return &models.Booking{
		ID:           id,
		CustomerName: "Robin",
		Date:         time.Now(),
		StartTime:    "10:00",
		Status:       status,
		UpdatedAt:    time.Now(),
	}
}

func TestTrackNotFound(t *testing.T) {
	svc, _ := setupTracking(t)

	_, err := svc.Track(context.Background(), "VLT-void")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackPendingRejected(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, trackable("VLT-1", models.StatusPending)))

	_, err := svc.Track(ctx, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotTrackable)
}

func TestTrackCancelledRejected(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, trackable("VLT-1", models.StatusCancelled)))

	_, err := svc.Track(ctx, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotTrackable)
}

func TestTrackInspectingShowsPlaceholders(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusInspecting)
	// real tasks may already exist mid-inspection; the customer still sees
	// the placeholder checklist at zero
	b.Tasks = []models.ServiceTaskItem{{ID: "t1", Name: "Wash", AllocatedTime: 30, Completed: true}}
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)

	assert.False(t, view.IsInspected)
	assert.Equal(t, 0, view.Progress)
	require.Len(t, view.Tasks, len(models.PlaceholderTaskNames))
	assert.Equal(t, models.PlaceholderTaskNames[0], view.Tasks[0].Name)
}

func TestTrackConfirmedShowsPlaceholders(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, trackable("VLT-1", models.StatusConfirmed)))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progress)
	assert.Len(t, view.Tasks, len(models.PlaceholderTaskNames))
}

func TestTrackInProgressUsesDenormalizedProgress(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusInProgress)
	b.Tasks = []models.ServiceTaskItem{
		{ID: "t1", Name: "Wash", AllocatedTime: 50, Completed: true},
		{ID: "t2", Name: "Polish", AllocatedTime: 50},
	}
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))
	require.NoError(t, c.SetProgress(ctx, "VLT-1", 50))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)
	assert.True(t, view.IsInspected)
	assert.Equal(t, 50, view.Progress)
	assert.Len(t, view.Tasks, 2)
}

func TestTrackFallsBackToComputedProgress(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusInProgress)
	b.Tasks = []models.ServiceTaskItem{
		{ID: "t1", Name: "Wash", AllocatedTime: 30, Completed: true},
		{ID: "t2", Name: "Polish", AllocatedTime: 70},
	}
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, 30, view.Progress)
}

func TestTrackFinishedSameDay(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusFinished)
	b.Tasks = []models.ServiceTaskItem{{ID: "t1", Name: "Wash", AllocatedTime: 30, Completed: true}}
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress)
}

func TestTrackFinishedExpiresEndOfDay(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusFinished)
	b.UpdatedAt = time.Now().AddDate(0, 0, -1)
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionActive, b))

	_, err := svc.Track(ctx, "VLT-1")
	assert.ErrorIs(t, err, domain.ErrNotTrackable)
}

func TestTrackResolvesArchivedBookings(t *testing.T) {
	svc, c := setupTracking(t)
	ctx := context.Background()

	b := trackable("VLT-1", models.StatusFinished)
	b.Archived = true
	require.NoError(t, c.UpsertBooking(ctx, domain.CollectionArchived, b))

	view, err := svc.Track(ctx, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, "Robin", view.Booking.CustomerName)
}
