package schedule

import (
	"testing"
	"time"

	"valetcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasConflictDefaultDuration(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	confirmed := []*models.Booking{
		{ID: "VLT-A", Date: day, StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
	}

	// 11:00 with no end time runs until 13:00 and collides
	got, err := HasConflict(day, "11:00", "", confirmed)
	require.NoError(t, err)
	assert.True(t, got)

	// 13:00 starts after the confirmed slot ends
	got, err = HasConflict(day, "13:00", "", confirmed)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestHasConflictIgnoresPending(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{ID: "VLT-A", Date: day, StartTime: "10:00", EndTime: "12:00", Status: models.StatusPending},
		{ID: "VLT-B", Date: day, StartTime: "10:00", EndTime: "12:00", Status: models.StatusCancelled},
	}

	got, err := HasConflict(day, "10:30", "", bookings)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestHasConflictDifferentDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	confirmed := []*models.Booking{
		{ID: "VLT-A", Date: day.AddDate(0, 0, 1), StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
	}

	got, err := HasConflict(day, "10:00", "12:00", confirmed)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestHasConflictBackToBack(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	confirmed := []*models.Booking{
		{ID: "VLT-A", Date: day, StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
	}

	// ends exactly when the confirmed one starts
	got, err := HasConflict(day, "08:00", "10:00", confirmed)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestHasConflictMalformedStoredBooking(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	confirmed := []*models.Booking{
		{ID: "VLT-A", Date: day, StartTime: "bad", Status: models.StatusConfirmed},
	}

	got, err := HasConflict(day, "10:00", "", confirmed)
	assert.Error(t, err)
	assert.True(t, got)
}

func TestFindConflicting(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{ID: "VLT-A", Date: day, StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
		{ID: "VLT-B", Date: day, StartTime: "11:00", EndTime: "13:00", Status: models.StatusConfirmed},
		{ID: "VLT-C", Date: day, StartTime: "15:00", EndTime: "16:00", Status: models.StatusConfirmed},
	}

	ids, err := FindConflicting(day, "11:30", "", bookings)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"VLT-A", "VLT-B"}, ids)
}
