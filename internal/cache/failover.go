package cache

import (
	"context"
	"sync/atomic"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCache fronts a primary cache (usually Redis) with an in-memory
// fallback. After a primary failure all traffic goes to the fallback; the
// primary is probed again after a minute.
type FailoverCache struct {
	primary  domain.Cache
	fallback domain.Cache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// lastCheck holds unix nanos of the last recorded failure; it is read
	// from request goroutines, so it must be atomic like isDown.
	lastCheck atomic.Int64
}

func NewFailoverCache(primary, fallback domain.Cache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverCache) failed(err error) {
	c.logger.Error().Err(err).Msg("primary cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverCache) shouldProbe() bool {
	return c.isDown.Load() && time.Now().UnixNano()-c.lastCheck.Load() > int64(time.Minute)
}

func (c *FailoverCache) GetBookings(ctx context.Context, collection string) ([]*models.Booking, error) {
	if !c.isDown.Load() || c.shouldProbe() {
		bookings, err := c.primary.GetBookings(ctx, collection)
		if err == nil {
			c.isDown.Store(false)
			return bookings, nil
		}
		c.failed(err)
	}
	return c.fallback.GetBookings(ctx, collection)
}

func (c *FailoverCache) SetBookings(ctx context.Context, collection string, bookings []*models.Booking) error {
	if !c.isDown.Load() || c.shouldProbe() {
		err := c.primary.SetBookings(ctx, collection, bookings)
		if err == nil {
			c.isDown.Store(false)
			// Mirror into the fallback so a later failover still reads
			// current data.
			_ = c.fallback.SetBookings(ctx, collection, bookings)
			return nil
		}
		c.failed(err)
	}
	return c.fallback.SetBookings(ctx, collection, bookings)
}

func (c *FailoverCache) GetBooking(ctx context.Context, collection, bookingID string) (*models.Booking, error) {
	if !c.isDown.Load() || c.shouldProbe() {
		booking, err := c.primary.GetBooking(ctx, collection, bookingID)
		if err == nil || err == domain.ErrNotFound {
			c.isDown.Store(false)
			return booking, err
		}
		c.failed(err)
	}
	return c.fallback.GetBooking(ctx, collection, bookingID)
}

func (c *FailoverCache) UpsertBooking(ctx context.Context, collection string, booking *models.Booking) error {
	if !c.isDown.Load() || c.shouldProbe() {
		err := c.primary.UpsertBooking(ctx, collection, booking)
		if err == nil {
			c.isDown.Store(false)
			_ = c.fallback.UpsertBooking(ctx, collection, booking)
			return nil
		}
		c.failed(err)
	}
	return c.fallback.UpsertBooking(ctx, collection, booking)
}

func (c *FailoverCache) RemoveBooking(ctx context.Context, collection, bookingID string) (bool, error) {
	var removed bool
	if !c.isDown.Load() || c.shouldProbe() {
		ok, err := c.primary.RemoveBooking(ctx, collection, bookingID)
		if err == nil {
			c.isDown.Store(false)
			removed = ok
		} else {
			c.failed(err)
		}
	}
	fallbackRemoved, err := c.fallback.RemoveBooking(ctx, collection, bookingID)
	if err != nil {
		return removed, err
	}
	return removed || fallbackRemoved, nil
}

func (c *FailoverCache) GetProgress(ctx context.Context, bookingID string) (int, bool, error) {
	if !c.isDown.Load() || c.shouldProbe() {
		pct, ok, err := c.primary.GetProgress(ctx, bookingID)
		if err == nil {
			c.isDown.Store(false)
			return pct, ok, nil
		}
		c.failed(err)
	}
	return c.fallback.GetProgress(ctx, bookingID)
}

func (c *FailoverCache) SetProgress(ctx context.Context, bookingID string, percent int) error {
	if !c.isDown.Load() || c.shouldProbe() {
		err := c.primary.SetProgress(ctx, bookingID, percent)
		if err == nil {
			c.isDown.Store(false)
			_ = c.fallback.SetProgress(ctx, bookingID, percent)
			return nil
		}
		c.failed(err)
	}
	return c.fallback.SetProgress(ctx, bookingID, percent)
}

func (c *FailoverCache) MarkDirty(ctx context.Context, bookingID string) error {
	// Dirty marks feed the reconciler; always record them in both tiers so a
	// failover never loses pending sync work.
	var primaryErr error
	if !c.isDown.Load() || c.shouldProbe() {
		primaryErr = c.primary.MarkDirty(ctx, bookingID)
		if primaryErr != nil {
			c.failed(primaryErr)
		} else {
			c.isDown.Store(false)
		}
	}
	return c.fallback.MarkDirty(ctx, bookingID)
}

func (c *FailoverCache) DirtyIDs(ctx context.Context) ([]string, error) {
	fallbackIDs, err := c.fallback.DirtyIDs(ctx)
	if err != nil {
		return nil, err
	}

	if !c.isDown.Load() || c.shouldProbe() {
		primaryIDs, err := c.primary.DirtyIDs(ctx)
		if err == nil {
			c.isDown.Store(false)
			return mergeIDs(fallbackIDs, primaryIDs), nil
		}
		c.failed(err)
	}
	return fallbackIDs, nil
}

func (c *FailoverCache) ClearDirty(ctx context.Context, bookingIDs ...string) error {
	if !c.isDown.Load() || c.shouldProbe() {
		if err := c.primary.ClearDirty(ctx, bookingIDs...); err != nil {
			c.failed(err)
		} else {
			c.isDown.Store(false)
		}
	}
	return c.fallback.ClearDirty(ctx, bookingIDs...)
}

func mergeIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
