package models

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// Request модели

// CancelBookingRequest запрос на отмену бронирования
type CancelBookingRequest struct {
	UserID             int64   `json:"-"`
	CancellationReason *string `json:"cancellationReason,omitempty"`
}

// UpdateStatusRequest запрос на обновление статуса бронирования
type UpdateStatusRequest struct {
	UserID int64  `json:"-"`
	Status string `json:"status"`
}

// RescheduleRequest запрос на перенос бронирования
type RescheduleRequest struct {
	UserID   int64
	Date     time.Time
	TimeSlot string
}

// GetPatientBookingsRequest запрос на получение бронирований пациента
type GetPatientBookingsRequest struct {
	UserID    int64
	PatientID int64
	Status    *string
}

// GetProviderBookingsRequest запрос на получение расписания врача
type GetProviderBookingsRequest struct {
	UserID     int64
	ProviderID int64
	Date       *time.Time // Конкретная дата (опционально)
	Status     *string    // Фильтр по статусу (опционально)
	Source     *string    // walk_in или online_request (опционально)
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID              int64   `json:"id"`
	Source          string  `json:"source"`
	PatientID       int64   `json:"patientId"`
	PatientName     string  `json:"patientName"`
	ProviderID      int64   `json:"providerId"`
	ServiceID       int64   `json:"serviceId"`
	BookingDate     string  `json:"bookingDate"` // "2026-10-21"
	TimeSlot        string  `json:"timeSlot"`    // "11:00 - 11:30"
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	ServiceName     string  `json:"serviceName"`
	ServicePrice    float64 `json:"servicePrice"`
	Notes           *string `json:"notes,omitempty"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"` // ISO 8601

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:                 b.ID,
		Source:             string(b.Source),
		PatientID:          b.PatientID,
		PatientName:        b.PatientName,
		ProviderID:         b.ProviderID,
		ServiceID:          b.ServiceID,
		BookingDate:        b.Date.Format(domain.DateFormat),
		TimeSlot:           b.TimeSlot,
		DurationMinutes:    b.DurationMinutes,
		Status:             string(b.Status),
		ServiceName:        b.ServiceName,
		ServicePrice:       b.ServicePrice,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}

	if b.CancelledAt != nil {
		cancelledStr := b.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledStr
	}

	return resp
}

// FromDomainBookingList конвертирует список domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}

	for _, booking := range bookings {
		if bookingResp := FromDomainBooking(booking); bookingResp != nil {
			resp.Bookings = append(resp.Bookings, *bookingResp)
		}
	}

	return resp
}
