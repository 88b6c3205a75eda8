package cache

import (
	"context"
	"sort"
	"sync"

	"valetcore/internal/domain"
	"valetcore/internal/models"
)

// MemoryCache is the default process-local cache tier. Bookings are held per
// collection in maps behind a single RWMutex and cloned on every boundary
// crossing, so readers observe either the old or the fully written booking,
// never a half-mutated one.
type MemoryCache struct {
	mu          sync.RWMutex
	collections map[string]map[string]*models.Booking
	progress    map[string]int
	dirty       map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		collections: make(map[string]map[string]*models.Booking),
		progress:    make(map[string]int),
		dirty:       make(map[string]struct{}),
	}
}

func (c *MemoryCache) GetBookings(ctx context.Context, collection string) ([]*models.Booking, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	coll, ok := c.collections[collection]
	if !ok {
		return nil, nil
	}
	out := make([]*models.Booking, 0, len(coll))
	for _, b := range coll {
		out = append(out, b.Clone())
	}
	sortBookings(out)
	return out, nil
}

func (c *MemoryCache) SetBookings(ctx context.Context, collection string, bookings []*models.Booking) error {
	coll := make(map[string]*models.Booking, len(bookings))
	for _, b := range bookings {
		coll[b.ID] = b.Clone()
	}

	c.mu.Lock()
	c.collections[collection] = coll
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) GetBooking(ctx context.Context, collection, bookingID string) (*models.Booking, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if b, ok := c.collections[collection][bookingID]; ok {
		return b.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (c *MemoryCache) UpsertBooking(ctx context.Context, collection string, booking *models.Booking) error {
	cloned := booking.Clone()

	c.mu.Lock()
	coll, ok := c.collections[collection]
	if !ok {
		coll = make(map[string]*models.Booking)
		c.collections[collection] = coll
	}
	coll[cloned.ID] = cloned
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) RemoveBooking(ctx context.Context, collection, bookingID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll, ok := c.collections[collection]
	if !ok {
		return false, nil
	}
	if _, ok := coll[bookingID]; !ok {
		return false, nil
	}
	delete(coll, bookingID)
	return true, nil
}

func (c *MemoryCache) GetProgress(ctx context.Context, bookingID string) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pct, ok := c.progress[bookingID]
	return pct, ok, nil
}

func (c *MemoryCache) SetProgress(ctx context.Context, bookingID string, percent int) error {
	c.mu.Lock()
	c.progress[bookingID] = percent
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) MarkDirty(ctx context.Context, bookingID string) error {
	c.mu.Lock()
	c.dirty[bookingID] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) DirtyIDs(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.dirty))
	for id := range c.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *MemoryCache) ClearDirty(ctx context.Context, bookingIDs ...string) error {
	c.mu.Lock()
	for _, id := range bookingIDs {
		delete(c.dirty, id)
	}
	c.mu.Unlock()
	return nil
}

func sortBookings(bookings []*models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.Before(bookings[j].Date)
		}
		if bookings[i].StartTime != bookings[j].StartTime {
			return bookings[i].StartTime < bookings[j].StartTime
		}
		return bookings[i].ID < bookings[j].ID
	})
}
