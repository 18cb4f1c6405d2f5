package create_booking

import (
	"context"

	createBooking "github.com/m04kA/SMC-ClinicBooking/internal/usecase/create_booking"
)

// CreateBookingUseCase записывает пациента на приём (walk-in или онлайн-заявка)
// с атомарной проверкой занятости слота врача
type CreateBookingUseCase interface {
	Execute(ctx context.Context, req *createBooking.Request) (*createBooking.Response, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
