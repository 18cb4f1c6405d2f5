package create_booking

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	createBooking "github.com/m04kA/SMC-ClinicBooking/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	Source      string  `json:"source"` // walk_in | online_request
	PatientID   int64   `json:"patientId"`
	ProviderID  int64   `json:"providerId"`
	ServiceID   int64   `json:"serviceId"`
	BookingDate string  `json:"bookingDate"` // "2026-10-21"
	TimeSlot    string  `json:"timeSlot"`    // "11:00 - 11:30" или "11:00"
	Notes       *string `json:"notes,omitempty"`
}

// BookingResponse HTTP response model
type BookingResponse struct {
	ID              int64   `json:"id"`
	Source          string  `json:"source"`
	PatientID       int64   `json:"patientId"`
	PatientName     string  `json:"patientName"`
	ProviderID      int64   `json:"providerId"`
	ServiceID       int64   `json:"serviceId"`
	BookingDate     string  `json:"bookingDate"`
	TimeSlot        string  `json:"timeSlot"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	ServiceName     string  `json:"serviceName"`
	ServicePrice    float64 `json:"servicePrice"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(userID int64) (*createBooking.Request, error) {
	bookingDate, err := time.Parse(domain.DateFormat, r.BookingDate)
	if err != nil {
		return nil, err
	}

	return &createBooking.Request{
		UserID:     userID,
		Source:     domain.BookingSource(r.Source),
		PatientID:  r.PatientID,
		ProviderID: r.ProviderID,
		ServiceID:  r.ServiceID,
		Date:       bookingDate,
		TimeSlot:   r.TimeSlot,
		Notes:      r.Notes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *BookingResponse {
	return &BookingResponse{
		ID:              resp.ID,
		Source:          string(resp.Source),
		PatientID:       resp.PatientID,
		PatientName:     resp.PatientName,
		ProviderID:      resp.ProviderID,
		ServiceID:       resp.ServiceID,
		BookingDate:     resp.BookingDate.Format(domain.DateFormat),
		TimeSlot:        resp.TimeSlot,
		DurationMinutes: resp.DurationMinutes,
		Status:          resp.Status,
		ServiceName:     resp.ServiceName,
		ServicePrice:    resp.ServicePrice,
		Notes:           resp.Notes,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       resp.UpdatedAt.Format(time.RFC3339),
	}
}
