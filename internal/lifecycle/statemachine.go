package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/metrics"
	"valetcore/internal/models"
	"valetcore/internal/progress"
	"valetcore/internal/schedule"

	"github.com/rs/zerolog"
)

// CatalogLookup resolves a package type from the static service catalog.
type CatalogLookup func(packageType string) *models.ServicePackage

// StateMachine validates and applies booking status transitions. It is the
// single authority for which statuses exist and what follows what; all
// read-modify-write on a booking's status goes through its per-id lock.
type StateMachine struct {
	cache    domain.Cache
	notifier domain.Notifier
	eventBus domain.EventPublisher
	catalog  CatalogLookup
	logger   *zerolog.Logger
	locks    sync.Map
	now      func() time.Time
}

// TransitionOptions carry per-call context for a transition.
type TransitionOptions struct {
	// Staff assigned when entering confirmed.
	Staff []string
	// AdminCancel permits confirmed → cancelled.
	AdminCancel bool
	// ChangedBy is recorded on the published event.
	ChangedBy string
}

func NewStateMachine(cache domain.Cache, notifier domain.Notifier, eventBus domain.EventPublisher, catalog CatalogLookup, logger *zerolog.Logger) *StateMachine {
	return &StateMachine{
		cache:    cache,
		notifier: notifier,
		eventBus: eventBus,
		catalog:  catalog,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *StateMachine) lockFor(bookingID string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(bookingID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// WithLock runs fn while holding the booking's transition lock, so other
// read-modify-write paths (task completion, package changes) serialize with
// status transitions on the same id.
func (m *StateMachine) WithLock(bookingID string, fn func() error) error {
	lock := m.lockFor(bookingID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Transition moves one booking to the target status. Bookings with different
// ids transition independently; the same id is serialized so the stored
// status can never interleave with a concurrent transition.
func (m *StateMachine) Transition(ctx context.Context, bookingID string, target models.Status, opts TransitionOptions) (*models.Booking, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}

	lock := m.lockFor(bookingID)
	lock.Lock()
	defer lock.Unlock()

	booking, err := m.cache.GetBooking(ctx, domain.CollectionActive, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.Status.CanTransition(target, opts.AdminCancel) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, booking.Status, target)
	}

	if err := m.applyPrerequisites(ctx, booking, target, opts); err != nil {
		return nil, err
	}

	booking.Status = target
	booking.UpdatedAt = m.now()
	booking.Version++

	if err := m.cache.UpsertBooking(ctx, domain.CollectionActive, booking); err != nil {
		return nil, fmt.Errorf("store transition %s → %s: %w", booking.ID, target, err)
	}
	if err := m.cache.MarkDirty(ctx, booking.ID); err != nil {
		m.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("mark dirty failed")
	}

	metrics.IncTransition(string(target))
	m.notifyFor(ctx, booking, target)
	m.publishStatusChange(booking, opts.ChangedBy)

	return booking.Clone(), nil
}

// applyPrerequisites checks and stages the entry conditions of the target
// status, mutating the booking where entry implies assignment.
func (m *StateMachine) applyPrerequisites(ctx context.Context, booking *models.Booking, target models.Status, opts TransitionOptions) error {
	switch target {
	case models.StatusConfirmed:
		// Conflict re-check happens here, at commit time, against the
		// current snapshot; a UI-time check alone has a stale-read window.
		active, err := m.cache.GetBookings(ctx, domain.CollectionActive)
		if err != nil {
			return fmt.Errorf("load confirmed snapshot: %w", err)
		}
		conflict, err := schedule.HasConflict(booking.Date, booking.StartTime, booking.EndTime, confirmedExcept(active, booking.ID))
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMissingPrerequisite, err)
		}
		if conflict {
			return fmt.Errorf("%w: %s %s", domain.ErrConflictDetected, booking.Date.Format("2006-01-02"), booking.StartTime)
		}
		if len(opts.Staff) > 0 {
			booking.Staff = append([]string(nil), opts.Staff...)
		}
		m.issueInvoice(booking)

	case models.StatusInspected:
		// Inspection is done: resolve the package into the real task list,
		// replacing the placeholder checklist.
		if len(booking.Tasks) == 0 && m.catalog != nil {
			booking.Tasks = progress.BuildTasks(booking.ID, m.catalog(booking.PackageType))
		}

	case models.StatusInProgress:
		if len(booking.Tasks) == 0 {
			return fmt.Errorf("%w: booking %s has no generated tasks", domain.ErrMissingPrerequisite, booking.ID)
		}
	}
	return nil
}

// issueInvoice creates the invoice at most once per booking id. A repeated
// confirm transition for the same booking never mints a second invoice.
func (m *StateMachine) issueInvoice(booking *models.Booking) {
	if booking.Invoice != nil && booking.Invoice.IssuedAt != nil {
		return
	}
	issued := m.now()
	booking.Invoice = &models.Invoice{
		Number:   fmt.Sprintf("INV-%s", booking.ID),
		Amount:   booking.TotalPrice,
		IssuedAt: &issued,
	}
}

func (m *StateMachine) notifyFor(ctx context.Context, booking *models.Booking, target models.Status) {
	if m.notifier == nil {
		return
	}

	var kind domain.NotificationKind
	switch target {
	case models.StatusConfirmed:
		kind = domain.NotifyInvoice
	case models.StatusCompleted, models.StatusFinished:
		kind = domain.NotifyCompletion
	default:
		kind = domain.NotifyUpdate
	}

	if err := m.notifier.Notify(ctx, booking.Clone(), kind); err != nil {
		m.logger.Error().Err(err).Str("booking_id", booking.ID).Str("kind", string(kind)).Msg("notify error")
	}
}

func (m *StateMachine) publishStatusChange(booking *models.Booking, changedBy string) {
	if m.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		CustomerName: booking.CustomerName,
		Status:       booking.Status,
		Progress:     booking.ProgressPercentage,
		Date:         booking.Date,
		ChangedBy:    changedBy,
	}

	if err := m.eventBus.PublishJSON(events.EventStatusChanged, payload); err != nil {
		m.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func confirmedExcept(bookings []*models.Booking, excludeID string) []*models.Booking {
	var out []*models.Booking
	for _, b := range bookings {
		if b.ID == excludeID || b.Status != models.StatusConfirmed {
			continue
		}
		out = append(out, b)
	}
	return out
}
