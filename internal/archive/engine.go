package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/metrics"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
)

// Engine sweeps finished bookings out of the active working set into the
// archive partition. Status is the sole gate; the retention window is carried
// for reporting only.
type Engine struct {
	cache         domain.Cache
	eventBus      domain.EventPublisher
	logger        *zerolog.Logger
	retentionDays int
	now           func() time.Time
}

// Stats aggregates both partitions for dashboard consumption.
type Stats struct {
	TotalBookings    int     `json:"total_bookings"`
	ActiveBookings   int     `json:"active_bookings"`
	ArchivedBookings int     `json:"archived_bookings"`
	UniqueCustomers  int     `json:"unique_customers"`
	TotalRevenue     float64 `json:"total_revenue"`
	RetentionDays    int     `json:"retention_days"`
	PastRetention    int     `json:"past_retention"`
}

func NewEngine(cache domain.Cache, eventBus domain.EventPublisher, retentionDays int, logger *zerolog.Logger) *Engine {
	if retentionDays <= 0 {
		retentionDays = models.DefaultRetentionDays
	}
	return &Engine{
		cache:         cache,
		eventBus:      eventBus,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Sweep partitions the working set, moving finished bookings into the
// archive collection. Re-running over an already swept set is a no-op:
// archived ids are deduplicated, never duplicated.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	active, err := e.cache.GetBookings(ctx, domain.CollectionActive)
	if err != nil {
		return 0, fmt.Errorf("load active bookings: %w", err)
	}
	archived, err := e.cache.GetBookings(ctx, domain.CollectionArchived)
	if err != nil {
		return 0, fmt.Errorf("load archived bookings: %w", err)
	}

	archivedIDs := make(map[string]struct{}, len(archived))
	for _, b := range archived {
		archivedIDs[b.ID] = struct{}{}
	}

	var moved int
	for _, b := range active {
		if !b.Status.Terminal() {
			continue
		}

		if _, dup := archivedIDs[b.ID]; !dup {
			b.Archived = true
			if err := e.cache.UpsertBooking(ctx, domain.CollectionArchived, b); err != nil {
				return moved, fmt.Errorf("archive booking %s: %w", b.ID, err)
			}
			archivedIDs[b.ID] = struct{}{}
		}
		if _, err := e.cache.RemoveBooking(ctx, domain.CollectionActive, b.ID); err != nil {
			return moved, fmt.Errorf("remove archived booking %s from active set: %w", b.ID, err)
		}
		moved++

		if err := e.cache.MarkDirty(ctx, b.ID); err != nil {
			e.logger.Error().Err(err).Str("booking_id", b.ID).Msg("mark archived dirty failed")
		}
		if e.eventBus != nil {
			_ = e.eventBus.PublishJSON(events.EventBookingArchived, events.BookingEventPayload{
				BookingID: b.ID,
				Status:    b.Status,
				Date:      b.Date,
			})
		}
		metrics.IncArchived()
	}

	if moved > 0 {
		e.logger.Info().Int("archived", moved).Msg("archive sweep complete")
	}
	return moved, nil
}

// Stats computes dashboard aggregates across both partitions.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	active, err := e.cache.GetBookings(ctx, domain.CollectionActive)
	if err != nil {
		return nil, fmt.Errorf("load active bookings: %w", err)
	}
	archived, err := e.cache.GetBookings(ctx, domain.CollectionArchived)
	if err != nil {
		return nil, fmt.Errorf("load archived bookings: %w", err)
	}

	stats := &Stats{
		ActiveBookings:   len(active),
		ArchivedBookings: len(archived),
		TotalBookings:    len(active) + len(archived),
		RetentionDays:    e.retentionDays,
	}

	customers := make(map[string]struct{})
	cutoff := e.now().AddDate(0, 0, -e.retentionDays)
	for _, b := range active {
		customers[customerKey(b)] = struct{}{}
		stats.TotalRevenue += b.TotalPrice
	}
	for _, b := range archived {
		customers[customerKey(b)] = struct{}{}
		stats.TotalRevenue += b.TotalPrice
		if b.UpdatedAt.Before(cutoff) {
			stats.PastRetention++
		}
	}
	stats.UniqueCustomers = len(customers)

	return stats, nil
}

func customerKey(b *models.Booking) string {
	if b.CustomerEmail != "" {
		return strings.ToLower(b.CustomerEmail)
	}
	return strings.ToLower(strings.TrimSpace(b.CustomerName))
}
