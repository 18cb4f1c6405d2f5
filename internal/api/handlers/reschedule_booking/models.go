package reschedule_booking

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings/models"
)

// RescheduleBookingRequest HTTP request model
type RescheduleBookingRequest struct {
	BookingDate string `json:"bookingDate"` // "2026-10-22"
	TimeSlot    string `json:"timeSlot"`    // "12:00 - 12:30" или "12:00"
}

// ToServiceRequest конвертирует HTTP request в модель сервиса
func (r *RescheduleBookingRequest) ToServiceRequest(userID int64) (*models.RescheduleRequest, error) {
	date, err := time.Parse(domain.DateFormat, r.BookingDate)
	if err != nil {
		return nil, err
	}

	return &models.RescheduleRequest{
		UserID:   userID,
		Date:     date,
		TimeSlot: r.TimeSlot,
	}, nil
}
