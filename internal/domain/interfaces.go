package domain

import (
	"context"
	"time"

	"valetcore/internal/models"
)

// Cache collection names. The local cache is the UI read path of record;
// collections are replaced wholesale, never patched in place.
const (
	CollectionActive   = "bookings:active"
	CollectionArchived = "bookings:archived"
)

// NotificationKind selects the customer message template.
type NotificationKind string

const (
	NotifyInvoice    NotificationKind = "invoice"
	NotifyUpdate     NotificationKind = "update"
	NotifyCompletion NotificationKind = "completion"
)

// RemoteStore is the durable, authoritative store. Rows are keyed by the
// canonical UUID; every write is an upsert so retries are idempotent. Only the
// reconciler writes here.
type RemoteStore interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, remoteID string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*models.Booking, error)
	DeleteBooking(ctx context.Context, remoteID string) error

	GetIDMapping(ctx context.Context, shortID string) (string, error)
	PutIDMapping(ctx context.Context, shortID, remoteID string) error

	GetFlag(ctx context.Context, name string) (bool, error)
	SetFlag(ctx context.Context, name string, value bool) error
}

// BookingFilter narrows ListBookings. Zero value selects everything.
type BookingFilter struct {
	Status   models.Status
	Archived *bool
	From     time.Time
	To       time.Time
}

// Cache is the fast, process-local tier holding named booking collections,
// denormalized progress values and the dirty set consumed by the reconciler.
type Cache interface {
	GetBookings(ctx context.Context, collection string) ([]*models.Booking, error)
	SetBookings(ctx context.Context, collection string, bookings []*models.Booking) error
	GetBooking(ctx context.Context, collection, bookingID string) (*models.Booking, error)
	UpsertBooking(ctx context.Context, collection string, booking *models.Booking) error
	RemoveBooking(ctx context.Context, collection, bookingID string) (bool, error)

	GetProgress(ctx context.Context, bookingID string) (int, bool, error)
	SetProgress(ctx context.Context, bookingID string, percent int) error

	MarkDirty(ctx context.Context, bookingID string) error
	DirtyIDs(ctx context.Context) ([]string, error)
	ClearDirty(ctx context.Context, bookingIDs ...string) error
}

// Notifier delivers a customer message. Fire-and-forget: implementations log
// delivery failures and never block the caller on transport errors.
type Notifier interface {
	Notify(ctx context.Context, booking *models.Booking, kind NotificationKind) error
}

// EventPublisher is in-process pub/sub used to push tracking updates.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Reconciler is the manual-sync entry point exposed to callers.
type Reconciler interface {
	SyncNow(ctx context.Context) error
}
