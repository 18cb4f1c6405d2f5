package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownSource is returned when a source string is not a BookingSource
var ErrUnknownSource = errors.New("unknown booking source")

// BookingSource identifies where a booking was created. Each source is stored separately.
type BookingSource string

const (
	// SourceWalkIn appointments are created by clinic staff
	SourceWalkIn BookingSource = "walk_in"
	// SourceOnlineRequest appointments are submitted by patients from the portal
	SourceOnlineRequest BookingSource = "online_request"
)

// AllSources lists every BookingSource
var AllSources = []BookingSource{SourceWalkIn, SourceOnlineRequest}

// ParseBookingSource converts a source string case-insensitively
func ParseBookingSource(s string) (BookingSource, error) {
	normalized := BookingSource(strings.ToLower(strings.TrimSpace(s)))
	for _, source := range AllSources {
		if normalized == source {
			return source, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// InitialStatus returns the status a new booking from this source starts with.
// Walk-ins are confirmed by the staff member creating them, online requests wait for review.
func (s BookingSource) InitialStatus() BookingStatus {
	if s == SourceWalkIn {
		return StatusConfirmed
	}
	return StatusPending
}

// RescheduledStatus returns the status a booking from this source gets after a move.
// A blocking status (confirmed, paid) is kept. Pending and reschedule restart
// from the source's initial status.
func (s BookingSource) RescheduledStatus(current BookingStatus) BookingStatus {
	if current.Blocks() {
		return current
	}
	return s.InitialStatus()
}

func (s BookingSource) String() string {
	return string(s)
}

// Booking represents an appointment with a provider
type Booking struct {
	ID              int64
	Source          BookingSource
	PatientID       int64
	PatientName     string
	ProviderID      int64
	ServiceID       int64
	ServiceName     string
	ServicePrice    float64
	Date            time.Time
	TimeSlot        string // slot label, e.g. "11:00 - 11:30"
	DurationMinutes int
	Status          BookingStatus
	Notes           *string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Blocks returns true if the booking occupies its slots
func (b *Booking) Blocks() bool {
	return b.Status.Blocks()
}

// SlotSpan returns the number of consecutive slots the booking occupies
func (b *Booking) SlotSpan() int {
	return SlotsNeeded(b.DurationMinutes)
}

// CanBeCancelled returns true if the booking can be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status.CanTransitionTo(StatusCancelled)
}

// BookingsFilter фильтр для выборки бронирований одного источника
type BookingsFilter struct {
	Date       *time.Time      // Конкретная дата (опционально)
	ProviderID *int64          // Фильтр по врачу (опционально)
	PatientID  *int64          // Фильтр по пациенту (опционально)
	Statuses   []BookingStatus // Пустой список - все статусы
	ExcludeID  *int64          // Исключить бронирование (при переносе и смене статуса)
	ForUpdate  bool            // Заблокировать строки дня до конца транзакции (только запись)
}

// IsSingleDay returns true if the filter targets one calendar day
func (f BookingsFilter) IsSingleDay() bool {
	return f.Date != nil
}
