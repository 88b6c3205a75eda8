package models

const (
	// ShortIDPrefix opens every locally minted booking id.
	ShortIDPrefix = "VLT"

	// DefaultServiceDurationMinutes applies when a booking has no end time.
	DefaultServiceDurationMinutes = 120

	// DefaultSyncIntervalMinutes between periodic reconciliation passes.
	DefaultSyncIntervalMinutes = 5

	// DefaultRetentionDays is reported alongside archive stats; archival
	// itself is gated on status only.
	DefaultRetentionDays = 7

	// DefaultRedisTTL for cached collections, in seconds.
	DefaultRedisTTL = 24 * 60 * 60

	// RateLimitRPS and RateLimitBurst are API limiter defaults.
	RateLimitRPS   = 20
	RateLimitBurst = 5
)

// PlaceholderTaskNames back the tracking view while a booking is still in
// inspection and has no real task list yet.
var PlaceholderTaskNames = []string{"Inspection", "Preparation", "Setup"}
