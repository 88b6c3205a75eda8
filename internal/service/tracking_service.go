package service

import (
	"context"
	"fmt"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"
	"valetcore/internal/progress"
	"valetcore/internal/schedule"

	"github.com/rs/zerolog"
)

// TrackingView is the read-only snapshot served to the customer tracking
// page. Reads come from the local cache only and never recompute from the
// full task list when a denormalized percentage is available.
type TrackingView struct {
	Booking     *models.Booking          `json:"booking"`
	Tasks       []models.ServiceTaskItem `json:"tasks"`
	Progress    int                      `json:"progress_percentage"`
	IsInspected bool                     `json:"is_inspected"`
}

// TrackingService serves the polling read path of the tracking UI. Push
// updates flow over the event bus; polling stays as the coarse fallback.
type TrackingService struct {
	cache  domain.Cache
	logger *zerolog.Logger
	now    func() time.Time
}

func NewTrackingService(cache domain.Cache, logger *zerolog.Logger) *TrackingService {
	return &TrackingService{
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Track resolves the tracking view for a booking id.
//
// A finished booking stays trackable until the end of the day it finished
// on; after that the session has expired and reads are rejected so the
// caller redirects away.
func (s *TrackingService) Track(ctx context.Context, bookingID string) (*TrackingView, error) {
	booking, err := s.cache.GetBooking(ctx, domain.CollectionActive, bookingID)
	if err == domain.ErrNotFound {
		booking, err = s.cache.GetBooking(ctx, domain.CollectionArchived, bookingID)
	}
	if err != nil {
		return nil, err
	}

	if !booking.Status.Trackable() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrNotTrackable, booking.Status)
	}
	if booking.Status.Terminal() && !s.now().Before(schedule.EndOfDay(booking.UpdatedAt)) {
		return nil, fmt.Errorf("%w: tracking session expired", domain.ErrNotTrackable)
	}

	view := &TrackingView{
		Booking:     booking,
		IsInspected: booking.Status.AtLeast(models.StatusInspected),
	}

	// Before inspection is done the customer sees the fixed placeholder
	// checklist pinned at zero, never the real task state.
	if booking.Status == models.StatusInspecting || len(booking.Tasks) == 0 && !view.IsInspected {
		view.Tasks = progress.PlaceholderTasks()
		view.Progress = 0
		return view, nil
	}

	view.Tasks = booking.Tasks
	if pct, ok, err := s.cache.GetProgress(ctx, booking.ID); err == nil && ok {
		view.Progress = pct
	} else {
		view.Progress = progress.Compute(booking.Tasks)
	}
	return view, nil
}
