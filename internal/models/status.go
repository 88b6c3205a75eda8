package models

import "fmt"

// Status is the closed booking lifecycle enumeration. The forward chain is
// pending → confirmed → inspecting → inspected → in-progress → completed →
// finished, advanced one step at a time; cancellation branches off pending
// (and confirmed, for admin flows).
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInspecting Status = "inspecting"
	StatusInspected  Status = "inspected"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFinished   Status = "finished"
	StatusCancelled  Status = "cancelled"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusInspecting: 2,
	StatusInspected:  3,
	StatusInProgress: 4,
	StatusCompleted:  5,
	StatusFinished:   6,
}

// ParseStatus validates a raw string against the closed set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusRank[s]; ok {
		return s, nil
	}
	if s == StatusCancelled {
		return s, nil
	}
	return "", fmt.Errorf("unknown booking status: %q", raw)
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// Next reports whether target is one forward step from s.
func (s Status) Next(target Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to == from+1
}

// CanTransition reports whether the move s → target is allowed at all.
// Forward moves only along the adjacency; cancellation from pending, or from
// confirmed when adminCancel is set.
func (s Status) CanTransition(target Status, adminCancel bool) bool {
	if target == StatusCancelled {
		if s == StatusPending {
			return true
		}
		return s == StatusConfirmed && adminCancel
	}
	return s.Next(target)
}

// AtLeast reports whether s has reached rank of other in the forward chain.
func (s Status) AtLeast(other Status) bool {
	a, ok := statusRank[s]
	if !ok {
		return false
	}
	b, ok := statusRank[other]
	if !ok {
		return false
	}
	return a >= b
}

// Terminal reports whether the lifecycle is over for this booking.
func (s Status) Terminal() bool {
	return s == StatusFinished
}

// Trackable statuses are those the customer tracking view may serve.
func (s Status) Trackable() bool {
	return s.AtLeast(StatusConfirmed)
}
