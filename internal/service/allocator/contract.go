package allocator

import (
	"context"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// BookingReader читает бронирования одного источника
type BookingReader interface {
	GetByFilter(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error)
}

// Metrics счётчики, которые пишет аллокатор
type Metrics interface {
	IncSlotComputation(mode string)
	IncSlotFetchFailure(source string)
	IncMalformedBooking(source string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
