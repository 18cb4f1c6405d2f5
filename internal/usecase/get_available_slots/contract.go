package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
)

// SlotAllocator вычисляет свободные слоты по двум источникам бронирований
type SlotAllocator interface {
	Available(ctx context.Context, q allocator.Query) (*allocator.Result, error)
}

// PolicyProvider возвращает действующую политику записи врача
type PolicyProvider interface {
	GetEffective(ctx context.Context, providerID int64) (*domain.BookingPolicy, error)
}

// ServiceCatalog каталог услуг клиники
type ServiceCatalog interface {
	Get(id int64) (domain.ServiceOption, error)
}

// Calendar рабочий календарь клиники
type Calendar interface {
	ValidateDate(date, now time.Time, policy *domain.BookingPolicy) error
	IsOpen(date time.Time) bool
	FilterByNotice(date time.Time, slots []domain.TimeSlot, now time.Time, noticeMinutes int) []domain.TimeSlot
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
