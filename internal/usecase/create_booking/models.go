package create_booking

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// Request модель запроса на создание бронирования
type Request struct {
	UserID     int64                // ID пользователя, выполняющего запрос
	Source     domain.BookingSource // walk_in (ресепшн) или online_request (портал)
	PatientID  int64                // ID пациента
	ProviderID int64                // ID врача
	ServiceID  int64                // ID услуги из каталога
	Date       time.Time            // Дата бронирования (без времени)
	TimeSlot   string               // Слот: "11:00 - 11:30" или "11:00"
	Notes      *string              // Дополнительные заметки (опционально)
}

// Response модель ответа с созданным бронированием
type Response struct {
	ID              int64
	Source          domain.BookingSource
	PatientID       int64
	PatientName     string
	ProviderID      int64
	ServiceID       int64
	BookingDate     time.Time
	TimeSlot        string
	DurationMinutes int
	Status          string

	// Денормализованные данные услуги
	ServiceName  string
	ServicePrice float64
	Notes        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func fromDomain(b *domain.Booking) *Response {
	return &Response{
		ID:              b.ID,
		Source:          b.Source,
		PatientID:       b.PatientID,
		PatientName:     b.PatientName,
		ProviderID:      b.ProviderID,
		ServiceID:       b.ServiceID,
		BookingDate:     b.Date,
		TimeSlot:        b.TimeSlot,
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		ServiceName:     b.ServiceName,
		ServicePrice:    b.ServicePrice,
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
