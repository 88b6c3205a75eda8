package schedule

import (
	"fmt"
	"time"

	"valetcore/internal/models"
)

// Slot is a half-open [Start, End) interval on a single calendar day,
// expressed as minutes since midnight.
type Slot struct {
	Day   time.Time
	Start int
	End   int
}

// ParseClock converts "15:04" into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DayOf truncates a timestamp to its calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// EndOfDay returns the first instant of the following day.
func EndOfDay(t time.Time) time.Time {
	return DayOf(t).AddDate(0, 0, 1)
}

// SlotFor builds the slot a booking occupies. A missing end time derives as
// start plus the default service duration.
func SlotFor(b *models.Booking) (Slot, error) {
	start, err := ParseClock(b.StartTime)
	if err != nil {
		return Slot{}, err
	}

	end := start + models.DefaultServiceDurationMinutes
	if b.EndTime != "" {
		end, err = ParseClock(b.EndTime)
		if err != nil {
			return Slot{}, err
		}
	}
	if end < start {
		return Slot{}, fmt.Errorf("booking %s: end time %s before start time %s", b.ID, b.EndTime, b.StartTime)
	}

	return Slot{Day: DayOf(b.Date), Start: start, End: end}, nil
}

// Overlaps reports whether two slots share a day and their half-open
// intervals intersect. Back-to-back slots do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	if !SameDay(s.Day, other.Day) {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}
