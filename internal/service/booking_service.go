package service

import (
	"context"
	"fmt"
	"time"

	"valetcore/internal/config"
	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/lifecycle"
	"valetcore/internal/metrics"
	"valetcore/internal/models"
	"valetcore/internal/progress"
	"valetcore/internal/schedule"
	"valetcore/internal/syncer"

	"github.com/rs/zerolog"
)

// Catalog is the static, read-only service catalog resolved from config.
type Catalog struct {
	packages map[string]models.ServicePackage
	addons   map[string]models.AdditionalService
}

func NewCatalog(packages []models.ServicePackage, addons []models.AdditionalService) *Catalog {
	c := &Catalog{
		packages: make(map[string]models.ServicePackage, len(packages)),
		addons:   make(map[string]models.AdditionalService, len(addons)),
	}
	for _, pkg := range packages {
		c.packages[pkg.Type] = pkg
	}
	for _, a := range addons {
		c.addons[a.ID] = a
	}
	return c
}

// Package returns the catalog entry for a package type, or nil.
func (c *Catalog) Package(packageType string) *models.ServicePackage {
	if pkg, ok := c.packages[packageType]; ok {
		return &pkg
	}
	return nil
}

// Price totals a package and its add-ons.
func (c *Catalog) Price(packageType string, addonIDs []string) float64 {
	var total float64
	if pkg, ok := c.packages[packageType]; ok {
		total = pkg.Price
	}
	for _, id := range addonIDs {
		if a, ok := c.addons[id]; ok {
			total += a.Price
		}
	}
	return total
}

// BookingService is the entry point UI collaborators call into: intake,
// status changes, task completion and forced sync. All local-cache writes
// happen here or in the state machine; the remote store is only ever touched
// by the reconciler.
type BookingService struct {
	cache           domain.Cache
	machine         *lifecycle.StateMachine
	reconciler      domain.Reconciler
	eventBus        domain.EventPublisher
	catalog         *Catalog
	maxAdvanceDays  int
	defaultDuration int
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewBookingService(cache domain.Cache, machine *lifecycle.StateMachine, reconciler domain.Reconciler, eventBus domain.EventPublisher, catalog *Catalog, bookingCfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	maxAdvanceDays := bookingCfg.MaxAdvanceDays
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	defaultDuration := bookingCfg.DefaultDurationMinutes
	if defaultDuration <= 0 {
		defaultDuration = models.DefaultServiceDurationMinutes
	}
	return &BookingService{
		cache:           cache,
		machine:         machine,
		reconciler:      reconciler,
		eventBus:        eventBus,
		catalog:         catalog,
		maxAdvanceDays:  maxAdvanceDays,
		defaultDuration: defaultDuration,
		logger:          logger,
		now:             time.Now,
	}
}

// defaultEndTime derives the end clock for a booking submitted without one,
// using the configured default service duration. Clamped to the same day.
func (s *BookingService) defaultEndTime(startTime string) (string, error) {
	start, err := schedule.ParseClock(startTime)
	if err != nil {
		return "", err
	}
	end := start + s.defaultDuration
	if end > 24*60-1 {
		end = 24*60 - 1
	}
	return schedule.FormatClock(end), nil
}

func (s *BookingService) ValidateBookingDate(date time.Time) error {
	if date.Before(schedule.DayOf(s.now())) {
		return fmt.Errorf("%w: booking date is in the past", domain.ErrMissingPrerequisite)
	}
	maxDate := s.now().AddDate(0, 0, s.maxAdvanceDays)
	if date.After(maxDate) {
		return fmt.Errorf("%w: booking date is more than %d days ahead", domain.ErrMissingPrerequisite, s.maxAdvanceDays)
	}
	return nil
}

// CreateBooking accepts an intake submission. New bookings always start in
// pending; the local cache is written first and the row is marked dirty for
// the next reconciliation pass.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := s.ValidateBookingDate(booking.Date); err != nil {
		return err
	}
	if booking.EndTime == "" {
		end, err := s.defaultEndTime(booking.StartTime)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMissingPrerequisite, err)
		}
		booking.EndTime = end
	}
	if _, err := schedule.SlotFor(booking); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMissingPrerequisite, err)
	}

	if booking.ID == "" {
		booking.ID = syncer.MintShortID(s.now())
	}
	booking.Status = models.StatusPending
	booking.TotalPrice = s.catalog.Price(booking.PackageType, booking.AdditionalServiceIDs)
	booking.CreatedAt = s.now()
	booking.UpdatedAt = booking.CreatedAt
	booking.Version = 1

	if err := s.cache.UpsertBooking(ctx, domain.CollectionActive, booking); err != nil {
		return fmt.Errorf("store booking: %w", err)
	}
	if err := s.cache.MarkDirty(ctx, booking.ID); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("mark dirty failed")
	}

	metrics.IncCreated()
	s.publishEvent(events.EventBookingCreated, booking, "intake")
	return nil
}

// ChangeStatus applies one lifecycle transition.
func (s *BookingService) ChangeStatus(ctx context.Context, bookingID string, target models.Status, opts lifecycle.TransitionOptions) (*models.Booking, error) {
	return s.machine.Transition(ctx, bookingID, target, opts)
}

// CompleteTask marks one checklist item done, recomputes the weighted
// progress and pushes it to the booking's denormalized field so tracking
// reads stay cheap.
func (s *BookingService) CompleteTask(ctx context.Context, bookingID, taskID string) (*models.Booking, error) {
	var updated *models.Booking
	err := s.machine.WithLock(bookingID, func() error {
		booking, err := s.cache.GetBooking(ctx, domain.CollectionActive, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.AtLeast(models.StatusInspected) {
			return fmt.Errorf("%w: booking %s has no actionable task list yet", domain.ErrMissingPrerequisite, bookingID)
		}
		if !progress.CompleteTask(booking.Tasks, taskID, s.now()) {
			return fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
		}

		booking.ProgressPercentage = progress.Compute(booking.Tasks)
		booking.UpdatedAt = s.now()
		booking.Version++

		if err := s.cache.UpsertBooking(ctx, domain.CollectionActive, booking); err != nil {
			return fmt.Errorf("store task completion: %w", err)
		}
		if err := s.cache.SetProgress(ctx, booking.ID, booking.ProgressPercentage); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("store progress failed")
		}
		if err := s.cache.MarkDirty(ctx, booking.ID); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("mark dirty failed")
		}

		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventProgressUpdated, updated, "staff")
	return updated.Clone(), nil
}

// ChangePackage re-resolves the task list for a new package, carrying
// completion state over by task name.
func (s *BookingService) ChangePackage(ctx context.Context, bookingID, packageType string) (*models.Booking, error) {
	pkg := s.catalog.Package(packageType)
	if pkg == nil {
		return nil, fmt.Errorf("%w: package %s", domain.ErrNotFound, packageType)
	}

	var updated *models.Booking
	err := s.machine.WithLock(bookingID, func() error {
		booking, err := s.cache.GetBooking(ctx, domain.CollectionActive, bookingID)
		if err != nil {
			return err
		}

		booking.PackageType = packageType
		booking.TotalPrice = s.catalog.Price(packageType, booking.AdditionalServiceIDs)
		if len(booking.Tasks) > 0 || booking.Status.AtLeast(models.StatusInspected) {
			booking.Tasks = progress.RegenerateTasks(booking.ID, pkg, booking.Tasks)
			booking.ProgressPercentage = progress.Compute(booking.Tasks)
			if err := s.cache.SetProgress(ctx, booking.ID, booking.ProgressPercentage); err != nil {
				s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("store progress failed")
			}
		}
		booking.UpdatedAt = s.now()
		booking.Version++

		if err := s.cache.UpsertBooking(ctx, domain.CollectionActive, booking); err != nil {
			return fmt.Errorf("store package change: %w", err)
		}
		if err := s.cache.MarkDirty(ctx, booking.ID); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("mark dirty failed")
		}

		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventProgressUpdated, updated, "staff")
	return updated.Clone(), nil
}

// DeleteBooking removes a booking from the working set. The id stays dirty
// so the reconciler propagates the delete to the remote store.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID string) error {
	removedActive, err := s.cache.RemoveBooking(ctx, domain.CollectionActive, bookingID)
	if err != nil {
		return fmt.Errorf("remove booking: %w", err)
	}
	removedArchived, err := s.cache.RemoveBooking(ctx, domain.CollectionArchived, bookingID)
	if err != nil {
		return fmt.Errorf("remove archived booking: %w", err)
	}
	if !removedActive && !removedArchived {
		return domain.ErrNotFound
	}

	if err := s.cache.MarkDirty(ctx, bookingID); err != nil {
		s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("mark dirty failed")
	}
	return nil
}

// GetBooking resolves a booking from either partition.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.cache.GetBooking(ctx, domain.CollectionActive, bookingID)
	if err == nil {
		return booking, nil
	}
	if err != domain.ErrNotFound {
		return nil, err
	}
	return s.cache.GetBooking(ctx, domain.CollectionArchived, bookingID)
}

func (s *BookingService) ListActive(ctx context.Context) ([]*models.Booking, error) {
	return s.cache.GetBookings(ctx, domain.CollectionActive)
}

func (s *BookingService) ListArchived(ctx context.Context) ([]*models.Booking, error) {
	return s.cache.GetBookings(ctx, domain.CollectionArchived)
}

// CheckSlot is the UI-time conflict pre-check. The state machine re-checks
// at commit; this exists for immediate feedback while the form is open.
func (s *BookingService) CheckSlot(ctx context.Context, date time.Time, startTime, endTime string) (bool, error) {
	if endTime == "" {
		derived, err := s.defaultEndTime(startTime)
		if err != nil {
			return false, err
		}
		endTime = derived
	}

	confirmed, err := s.cache.GetBookings(ctx, domain.CollectionActive)
	if err != nil {
		return false, err
	}
	return schedule.HasConflict(date, startTime, endTime, confirmed)
}

// ForceSync runs a user-triggered reconciliation pass and surfaces the
// outcome, unlike the silent periodic pass.
func (s *BookingService) ForceSync(ctx context.Context) error {
	return s.reconciler.SyncNow(ctx)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil {
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
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
