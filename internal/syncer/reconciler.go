package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/metrics"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
)

// MigrationFlag marks the one-time bulk migration as done in the remote meta
// table; once set, startup skips migration entirely.
const MigrationFlag = "migration_complete"

// Reconciler keeps the local cache and the remote store eventually
// consistent. The cache is always written first and is the UI read path; the
// reconciler is the only component that writes the remote store.
type Reconciler struct {
	store    domain.RemoteStore
	cache    domain.Cache
	ids      *Normalizer
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	interval time.Duration
	inFlight atomic.Bool
}

func NewReconciler(store domain.RemoteStore, cache domain.Cache, eventBus domain.EventPublisher, interval time.Duration, logger *zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = models.DefaultSyncIntervalMinutes * time.Minute
	}
	return &Reconciler{
		store:    store,
		cache:    cache,
		ids:      NewNormalizer(store),
		eventBus: eventBus,
		logger:   logger,
		interval: interval,
	}
}

// Normalizer exposes the id normalizer for components that only resolve ids.
func (r *Reconciler) Normalizer() *Normalizer {
	return r.ids
}

// Start performs migration and hydration, then runs the periodic loop until
// the context is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	if err := r.EnsureMigration(ctx); err != nil {
		return err
	}
	if err := r.Hydrate(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reconciler stopped")
			return nil
		case <-ticker.C:
			if err := r.runPass(ctx, false); err != nil && err != domain.ErrSyncInFlight {
				// Deferred to the next tick; periodic failures never
				// propagate further than the log.
				r.logger.Error().Err(err).Msg("periodic sync pass failed")
			}
		}
	}
}

// SyncNow is the user-triggered forced sync. Unlike the periodic pass, its
// outcome is surfaced to the caller; a pass already in flight is reported,
// not queued.
func (r *Reconciler) SyncNow(ctx context.Context) error {
	return r.runPass(ctx, true)
}

// runPass pushes dirty local bookings to the remote store. Only one pass may
// be in flight at a time.
func (r *Reconciler) runPass(ctx context.Context, manual bool) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		metrics.IncSyncPass("skipped")
		return domain.ErrSyncInFlight
	}
	defer r.inFlight.Store(false)

	dirty, err := r.cache.DirtyIDs(ctx)
	if err != nil {
		metrics.IncSyncPass("error")
		return fmt.Errorf("%w: read dirty set: %v", domain.ErrSyncFailure, err)
	}
	if len(dirty) == 0 {
		metrics.IncSyncPass("ok")
		return nil
	}

	byID, err := r.localIndex(ctx)
	if err != nil {
		metrics.IncSyncPass("error")
		return fmt.Errorf("%w: load cache: %v", domain.ErrSyncFailure, err)
	}

	var pushed, failed int
	var firstErr error
	for _, id := range dirty {
		booking, ok := byID[id]
		if !ok {
			// Dirty id with no cached row: booking was deleted locally.
			if err := r.deleteRemote(ctx, id); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			_ = r.cache.ClearDirty(ctx, id)
			pushed++
			continue
		}

		if err := r.pushBooking(ctx, booking); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Error().Err(err).Str("booking_id", id).Msg("remote write failed, left for next pass")
			continue
		}
		_ = r.cache.ClearDirty(ctx, id)
		pushed++
	}

	if r.eventBus != nil {
		_ = r.eventBus.PublishJSON(events.EventSyncCompleted, events.SyncEventPayload{
			Pushed:   pushed,
			Failed:   failed,
			Manual:   manual,
			Finished: time.Now(),
		})
	}

	if failed > 0 {
		metrics.IncSyncPass("error")
		return fmt.Errorf("%w: %d of %d writes failed: %v", domain.ErrSyncFailure, failed, pushed+failed, firstErr)
	}

	metrics.IncSyncPass("ok")
	r.logger.Info().Int("pushed", pushed).Bool("manual", manual).Msg("sync pass complete")
	return nil
}

// pushBooking normalizes the id and upserts the row. Upsert semantics make
// retried and duplicate pushes idempotent.
func (r *Reconciler) pushBooking(ctx context.Context, booking *models.Booking) error {
	if booking.RemoteID == "" {
		remoteID, err := r.ids.Normalize(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", booking.ID, err)
		}
		booking.RemoteID = remoteID
	}
	return r.store.UpsertBooking(ctx, booking)
}

func (r *Reconciler) deleteRemote(ctx context.Context, shortID string) error {
	remoteID, err := r.ids.Normalize(ctx, shortID)
	if err != nil {
		return err
	}
	if err := r.store.DeleteBooking(ctx, remoteID); err != nil && err != domain.ErrNotFound {
		return err
	}
	return nil
}

// EnsureMigration performs the one-time bulk copy of pre-existing local data
// into the remote store, guarded by a durable flag.
func (r *Reconciler) EnsureMigration(ctx context.Context) error {
	done, err := r.store.GetFlag(ctx, MigrationFlag)
	if err != nil {
		return fmt.Errorf("%w: read flag: %v", domain.ErrMigrationFailure, err)
	}
	if done {
		return nil
	}

	byID, err := r.localIndex(ctx)
	if err != nil {
		return fmt.Errorf("%w: load cache: %v", domain.ErrMigrationFailure, err)
	}

	for id, booking := range byID {
		if err := r.pushBooking(ctx, booking); err != nil {
			return fmt.Errorf("%w: migrate %s: %v", domain.ErrMigrationFailure, id, err)
		}
	}

	if err := r.store.SetFlag(ctx, MigrationFlag, true); err != nil {
		return fmt.Errorf("%w: set flag: %v", domain.ErrMigrationFailure, err)
	}

	r.logger.Info().Int("migrated", len(byID)).Msg("initial migration complete")
	return nil
}

// Hydrate fills the ephemeral cache from the remote store on startup.
func (r *Reconciler) Hydrate(ctx context.Context) error {
	active, err := r.localOrRemote(ctx, domain.CollectionActive, false)
	if err != nil {
		return err
	}
	archived, err := r.localOrRemote(ctx, domain.CollectionArchived, true)
	if err != nil {
		return err
	}

	r.logger.Info().Int("active", len(active)).Int("archived", len(archived)).Msg("cache hydrated")
	return nil
}

func (r *Reconciler) localOrRemote(ctx context.Context, collection string, archived bool) ([]*models.Booking, error) {
	cached, err := r.cache.GetBookings(ctx, collection)
	if err == nil && cached != nil {
		return cached, nil
	}

	remote, err := r.store.ListBookings(ctx, domain.BookingFilter{Archived: &archived})
	if err != nil {
		return nil, fmt.Errorf("%w: list remote: %v", domain.ErrSyncFailure, err)
	}
	if err := r.cache.SetBookings(ctx, collection, remote); err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", collection, err)
	}
	return remote, nil
}

func (r *Reconciler) localIndex(ctx context.Context) (map[string]*models.Booking, error) {
	byID := make(map[string]*models.Booking)
	for _, collection := range []string{domain.CollectionActive, domain.CollectionArchived} {
		bookings, err := r.cache.GetBookings(ctx, collection)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			byID[b.ID] = b
		}
	}
	return byID, nil
}
