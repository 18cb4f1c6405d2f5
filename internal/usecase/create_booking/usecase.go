package create_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/events"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/locker"
	userClient "github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
)

// UseCase use case для создания бронирования
type UseCase struct {
	repos        map[domain.BookingSource]BookingRepository
	allocator    SlotAllocator
	policies     PolicyProvider
	services     ServiceCatalog
	calendar     Calendar
	userClient   UserServiceClient
	locker       Locker
	publisher    EventPublisher
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case. metrics может быть nil.
func NewUseCase(
	walkInRepo BookingRepository,
	onlineRepo BookingRepository,
	slotAllocator SlotAllocator,
	policies PolicyProvider,
	services ServiceCatalog,
	calendar Calendar,
	userClient UserServiceClient,
	bookingLocker Locker,
	publisher EventPublisher,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		repos: map[domain.BookingSource]BookingRepository{
			domain.SourceWalkIn:        walkInRepo,
			domain.SourceOnlineRequest: onlineRepo,
		},
		allocator:    slotAllocator,
		policies:     policies,
		services:     services,
		calendar:     calendar,
		userClient:   userClient,
		locker:       bookingLocker,
		publisher:    publisher,
		metrics:      metrics,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case создания бронирования.
// Проверка слота и вставка выполняются в одной сериализуемой транзакции,
// строки дня читаются FOR UPDATE, поэтому два запроса не могут занять один слот.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: user=%d, source=%s, patient=%d, provider=%d, service=%d, date=%s, slot=%q",
		req.UserID, req.Source, req.PatientID, req.ProviderID, req.ServiceID, req.Date.Format(domain.DateFormat), req.TimeSlot)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}
	source, _ := domain.ParseBookingSource(string(req.Source))

	// 2. Слот должен быть в каталоге
	catalog := uc.allocator.Catalog()
	slotIndex := catalog.IndexOf(req.TimeSlot)
	if slotIndex < 0 {
		uc.logger.Warn("CreateBooking: unknown time slot %q", req.TimeSlot)
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, req.TimeSlot)
	}
	slot := catalog.At(slotIndex)

	// 3. Услуга из каталога
	service, err := uc.services.Get(req.ServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrServiceOptionNotFound) {
			uc.logger.Warn("CreateBooking: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	// 4. Врач должен существовать и быть стоматологом
	if err := uc.checkProvider(ctx, req.ProviderID); err != nil {
		return nil, err
	}

	// 5. Права: walk-in создаёт только ресепшн, онлайн-заявку - сам пациент или ресепшн
	if err := uc.checkAccess(ctx, source, req); err != nil {
		return nil, err
	}

	// 6. Пациент (имя денормализуется, при недоступности UserService остаётся пустым)
	patientName, err := uc.patientName(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	// 7. Грубая блокировка расписания врача на дату
	lockKey := locker.BookingKey(req.ProviderID, req.Date)
	token, err := uc.locker.Lock(ctx, lockKey)
	switch {
	case errors.Is(err, locker.ErrLockNotAcquired):
		uc.logger.Warn("CreateBooking: schedule %s is locked by another request", lockKey)
		return nil, ErrSlotBusy
	case err != nil:
		// Корректность обеспечивает транзакция, продолжаем без блокировки
		uc.logger.Warn("CreateBooking: locker unavailable, continuing without lock: %v", err)
	default:
		defer func() {
			if err := uc.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				uc.logger.Warn("CreateBooking: failed to release lock %s: %v", lockKey, err)
			}
		}()
	}

	now := uc.timeProvider.Now()
	var result *domain.Booking

	// 8. Атомарная проверка и захват слота
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 8.1. Политика записи
		policy, err := uc.policies.GetEffective(txCtx, req.ProviderID)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to get policy: %v", err)
			return fmt.Errorf("%w: failed to get policy: %w", ErrInternal, err)
		}

		// 8.2. Дата, рабочий день и минимальное время до записи
		if err := uc.calendar.CheckSlot(req.Date, slot, now, policy); err != nil {
			uc.logger.Warn("CreateBooking: schedule check failed: %v", err)
			return mapScheduleError(err)
		}

		// 8.3. Блокирующие бронирования обоих источников (FOR UPDATE)
		bookings, err := uc.allocator.FetchBlocking(txCtx, req.Date, req.ProviderID, nil)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to get bookings: %v", err)
			return fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
		}

		// 8.4. Все слоты услуги подряд должны быть свободны
		if !allocator.IsFree(catalog, bookings, slotIndex, service.DurationMinutes) {
			uc.logger.Warn("CreateBooking: slot %s for %d minutes is not available", slot.Label(), service.DurationMinutes)
			if uc.metrics != nil {
				uc.metrics.IncBookingConflict("create")
			}
			return ErrSlotNotAvailable
		}

		// 8.5. Создаем бронирование с денормализацией данных
		booking := &domain.Booking{
			Source:          source,
			PatientID:       req.PatientID,
			PatientName:     patientName,
			ProviderID:      req.ProviderID,
			ServiceID:       service.ID,
			ServiceName:     service.Name,
			ServicePrice:    service.Price,
			Date:            req.Date,
			TimeSlot:        slot.Label(),
			DurationMinutes: service.DurationMinutes,
			Status:          source.InitialStatus(),
			Notes:           req.Notes,
		}

		created, err := uc.repos[source].Create(txCtx, booking)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to create booking: %v", err)
			return fmt.Errorf("%w: failed to create booking: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("CreateBooking: created %s booking id=%d, status=%s", source, result.ID, result.Status)

	// 9. Событие для нотификатора (best effort)
	event := events.NewBookingEvent(result, nil, now)
	if err := uc.publisher.Publish(ctx, events.KeyBookingCreated, event); err != nil {
		uc.logger.Warn("CreateBooking: failed to publish event for booking id=%d: %v", result.ID, err)
	}

	return fromDomain(result), nil
}

func (uc *UseCase) checkProvider(ctx context.Context, providerID int64) error {
	provider, err := uc.userClient.GetUser(ctx, providerID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			uc.logger.Warn("CreateBooking: provider id=%d not found", providerID)
			return ErrProviderNotFound
		}
		uc.logger.Error("CreateBooking: failed to get provider id=%d: %v", providerID, err)
		return fmt.Errorf("%w: failed to get provider: %v", ErrInternal, err)
	}

	if provider.DomainRole() != domain.RoleDentist {
		uc.logger.Warn("CreateBooking: user id=%d is not a dentist (role=%s)", providerID, provider.Role)
		return fmt.Errorf("%w: user %d is not a dentist", ErrProviderNotFound, providerID)
	}
	return nil
}

func (uc *UseCase) checkAccess(ctx context.Context, source domain.BookingSource, req *Request) error {
	if source == domain.SourceOnlineRequest && req.UserID == req.PatientID {
		return nil
	}

	actor, err := uc.userClient.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			return ErrAccessDenied
		}
		uc.logger.Error("CreateBooking: failed to get user id=%d: %v", req.UserID, err)
		return fmt.Errorf("%w: failed to get user: %v", ErrInternal, err)
	}

	if !actor.DomainRole().IsBackOffice() {
		uc.logger.Warn("CreateBooking: user id=%d (role=%s) cannot create %s booking for patient=%d",
			req.UserID, actor.Role, source, req.PatientID)
		return ErrAccessDenied
	}
	return nil
}

func (uc *UseCase) patientName(ctx context.Context, patientID int64) (string, error) {
	patient, err := uc.userClient.GetUserWithGracefulDegradation(ctx, patientID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			return "", ErrPatientNotFound
		}
		if errors.Is(err, userClient.ErrServiceDegraded) {
			uc.logger.Warn("CreateBooking: patient name unavailable for id=%d, storing empty name", patientID)
			return "", nil
		}
		return "", fmt.Errorf("%w: failed to get patient: %v", ErrInternal, err)
	}
	return patient.FullName, nil
}
