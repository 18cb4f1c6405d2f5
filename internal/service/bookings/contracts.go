package bookings

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
)

// BookingRepository интерфейс репозитория бронирований одного источника
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByFilter(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error
	Reschedule(ctx context.Context, id int64, date time.Time, timeSlot string, status domain.BookingStatus) error
	Cancel(ctx context.Context, id int64, reason *string) error
	Delete(ctx context.Context, id int64) error
}

// SlotAllocator читает блокирующие бронирования обоих источников
type SlotAllocator interface {
	Catalog() *domain.SlotCatalog
	FetchBlocking(ctx context.Context, date time.Time, providerID int64, exclude *domain.Booking) ([]*domain.Booking, error)
}

// PolicyProvider возвращает действующую политику записи врача
type PolicyProvider interface {
	GetEffective(ctx context.Context, providerID int64) (*domain.BookingPolicy, error)
}

// Calendar рабочий календарь клиники
type Calendar interface {
	CheckSlot(date time.Time, slot domain.TimeSlot, now time.Time, policy *domain.BookingPolicy) error
}

// UserServiceClient интерфейс клиента для UserService
type UserServiceClient interface {
	GetUser(ctx context.Context, userID int64) (*userservice.User, error)
}

// EventPublisher публикует события о бронированиях
type EventPublisher interface {
	Publish(ctx context.Context, key string, v interface{}) error
}

// Metrics счётчики конфликтов
type Metrics interface {
	IncBookingConflict(operation string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
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

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now() }
