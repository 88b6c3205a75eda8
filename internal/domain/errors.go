package domain

import "errors"

// Sentinel errors returned across the service boundary. Callers match them
// with errors.Is; the HTTP layer maps each one to a status code.
var (
	// ErrInvalidTransition means the target status is not reachable from the
	// booking's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingPrerequisite means the transition itself is adjacent but a
	// precondition is unmet, such as no generated tasks before in-progress.
	ErrMissingPrerequisite = errors.New("transition prerequisite not met")

	ErrConflictDetected = errors.New("time slot conflicts with a confirmed booking")

	ErrNotFound = errors.New("booking not found")

	// ErrNotTrackable covers statuses outside the trackable set and expired
	// tracking sessions.
	ErrNotTrackable = errors.New("booking is not trackable")

	// ErrSyncFailure means a remote write failed; the change stays dirty
	// locally and is retried on the next pass.
	ErrSyncFailure = errors.New("remote store sync failed")

	ErrMigrationFailure = errors.New("initial migration failed")

	// ErrSyncInFlight is returned when a reconciliation pass is already
	// running.
	ErrSyncInFlight = errors.New("sync already in progress")
)
