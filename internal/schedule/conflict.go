package schedule

import (
	"time"

	"valetcore/internal/models"
)

// HasConflict reports whether the proposed slot overlaps any confirmed
// booking on the same day. Pending bookings never block a slot. The check is
// pure; callers pass a snapshot and must re-check at commit time.
func HasConflict(date time.Time, startTime, endTime string, confirmed []*models.Booking) (bool, error) {
	proposed, err := SlotFor(&models.Booking{Date: date, StartTime: startTime, EndTime: endTime})
	if err != nil {
		return false, err
	}

	for _, b := range confirmed {
		if b.Status != models.StatusConfirmed {
			continue
		}
		slot, err := SlotFor(b)
		if err != nil {
			// A malformed stored booking cannot be allowed to free its slot.
			return true, err
		}
		if proposed.Overlaps(slot) {
			return true, nil
		}
	}
	return false, nil
}

// FindConflicting returns the ids of confirmed bookings overlapping the
// proposed slot, for user-facing conflict messages.
func FindConflicting(date time.Time, startTime, endTime string, confirmed []*models.Booking) ([]string, error) {
	proposed, err := SlotFor(&models.Booking{Date: date, StartTime: startTime, EndTime: endTime})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, b := range confirmed {
		if b.Status != models.StatusConfirmed {
			continue
		}
		slot, err := SlotFor(b)
		if err != nil {
			continue
		}
		if proposed.Overlaps(slot) {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}
