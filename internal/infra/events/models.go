package events

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// Routing keys
const (
	KeyBookingCreated       = "booking.created"
	KeyBookingStatusChanged = "booking.status_changed"
)

// BookingEvent сообщение о бронировании для нотификатора
type BookingEvent struct {
	BookingID      int64                 `json:"bookingId"`
	Source         domain.BookingSource  `json:"source"`
	PatientID      int64                 `json:"patientId"`
	ProviderID     int64                 `json:"providerId"`
	ServiceName    string                `json:"serviceName"`
	Date           string                `json:"date"`
	TimeSlot       string                `json:"timeSlot"`
	Status         domain.BookingStatus  `json:"status"`
	PreviousStatus *domain.BookingStatus `json:"previousStatus,omitempty"`
	Reason         *string               `json:"reason,omitempty"`
	OccurredAt     time.Time             `json:"occurredAt"`
}

// NewBookingEvent собирает событие из бронирования
func NewBookingEvent(b *domain.Booking, previous *domain.BookingStatus, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		BookingID:      b.ID,
		Source:         b.Source,
		PatientID:      b.PatientID,
		ProviderID:     b.ProviderID,
		ServiceName:    b.ServiceName,
		Date:           b.Date.Format(domain.DateFormat),
		TimeSlot:       b.TimeSlot,
		Status:         b.Status,
		PreviousStatus: previous,
		Reason:         b.CancellationReason,
		OccurredAt:     occurredAt,
	}
}
