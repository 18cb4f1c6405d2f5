package get_available_slots

import (
	"context"

	getAvailableSlots "github.com/m04kA/SMC-ClinicBooking/internal/usecase/get_available_slots"
)

// GetAvailableSlotsUseCase подбирает свободные слоты врача на дату
// с учётом записей обоих источников и политики клиники
type GetAvailableSlotsUseCase interface {
	Execute(ctx context.Context, req *getAvailableSlots.Request) (*getAvailableSlots.Response, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
