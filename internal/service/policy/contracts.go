package policy

import (
	"context"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
)

// PolicyRepository интерфейс репозитория политик записи
type PolicyRepository interface {
	GetWithHierarchy(ctx context.Context, providerID int64) (*domain.BookingPolicy, error)
	Upsert(ctx context.Context, policy *domain.BookingPolicy) (*domain.BookingPolicy, error)
}

// UserServiceClient интерфейс клиента для UserService
type UserServiceClient interface {
	GetUser(ctx context.Context, userID int64) (*userservice.User, error)
}

// TxManager интерфейс менеджера транзакций
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
