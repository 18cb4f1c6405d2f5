package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus is returned when a status string does not match any BookingStatus
var ErrUnknownStatus = errors.New("unknown booking status")

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusPaid       BookingStatus = "paid"
	StatusTreated    BookingStatus = "treated"
	StatusCancelled  BookingStatus = "cancelled"
	StatusReschedule BookingStatus = "reschedule"
)

// AllStatuses lists every BookingStatus in lifecycle order
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusPaid,
	StatusTreated,
	StatusCancelled,
	StatusReschedule,
}

// BlockingStatuses are the statuses whose bookings occupy schedule time
var BlockingStatuses = []BookingStatus{
	StatusConfirmed,
	StatusPaid,
}

// ParseBookingStatus converts a status string case-insensitively
func ParseBookingStatus(s string) (BookingStatus, error) {
	normalized := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, status := range AllStatuses {
		if normalized == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Blocks returns true if a booking in this status occupies its time slots.
// Pending, treated, cancelled and reschedule bookings leave the slots bookable.
func (s BookingStatus) Blocks() bool {
	switch s {
	case StatusConfirmed, StatusPaid:
		return true
	case StatusPending, StatusTreated, StatusCancelled, StatusReschedule:
		return false
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusTreated, StatusCancelled:
		return true
	case StatusPending, StatusConfirmed, StatusPaid, StatusReschedule:
		return false
	default:
		return true
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled || next == StatusReschedule
	case StatusConfirmed:
		return next == StatusPaid || next == StatusTreated || next == StatusCancelled || next == StatusReschedule
	case StatusPaid:
		return next == StatusTreated || next == StatusCancelled || next == StatusReschedule
	case StatusReschedule:
		return next == StatusPending || next == StatusConfirmed || next == StatusCancelled
	case StatusTreated, StatusCancelled:
		return false
	default:
		return false
	}
}

func (s BookingStatus) String() string {
	return string(s)
}
