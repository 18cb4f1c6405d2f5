package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/schedule"
)

// UseCase use case для получения доступных слотов для бронирования
type UseCase struct {
	allocator    SlotAllocator
	policies     PolicyProvider
	services     ServiceCatalog
	calendar     Calendar
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	slotAllocator SlotAllocator,
	policies PolicyProvider,
	services ServiceCatalog,
	calendar Calendar,
	logger Logger,
) *UseCase {
	return &UseCase{
		allocator:    slotAllocator,
		policies:     policies,
		services:     services,
		calendar:     calendar,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: provider=%d, date=%s, service=%v, duration=%v",
		req.ProviderID, req.Date.Format(domain.DateFormat), req.ServiceID, req.DurationMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Определяем длительность: явная > из услуги > не задана
	duration, err := uc.resolveDuration(req)
	if err != nil {
		return nil, err
	}

	now := uc.timeProvider.Now()

	// 3. Политика записи врача
	policy, err := uc.policies.GetEffective(ctx, req.ProviderID)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get policy for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: failed to get policy: %v", ErrInternal, err)
	}

	// 4. Валидация даты с учетом политики
	if err := uc.calendar.ValidateDate(req.Date, now, policy); err != nil {
		uc.logger.Warn("GetAvailableSlots: date validation failed: %v", err)
		switch {
		case errors.Is(err, schedule.ErrDateInPast):
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		case errors.Is(err, schedule.ErrDateTooFarInFuture):
			return nil, fmt.Errorf("%w: %v", ErrDateTooFarInFuture, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	resp := &Response{
		Date:            req.Date,
		ProviderID:      req.ProviderID,
		ServiceID:       req.ServiceID,
		DurationMinutes: duration,
		Slots:           []Slot{},
	}

	// 5. Выходной день - пустой список
	if !uc.calendar.IsOpen(req.Date) {
		uc.logger.Info("GetAvailableSlots: clinic is closed on %s", req.Date.Format(domain.DateFormat))
		return resp, nil
	}

	// 6. Свободные слоты по обоим источникам
	result, err := uc.allocator.Available(ctx, allocator.Query{
		Date:            req.Date,
		ProviderID:      req.ProviderID,
		DurationMinutes: duration,
	})
	if err != nil {
		switch {
		case errors.Is(err, allocator.ErrBookingsUnavailable):
			uc.logger.Error("GetAvailableSlots: bookings unavailable: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrBookingsUnavailable, err)
		case errors.Is(err, allocator.ErrInvalidQuery):
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		default:
			uc.logger.Error("GetAvailableSlots: allocator failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	// 7. Отбрасываем слоты, до которых меньше минимального времени записи
	free := uc.calendar.FilterByNotice(req.Date, result.Slots, now, policy.MinBookingNoticeMinutes)

	resp.Degraded = result.Degraded
	for _, slot := range free {
		resp.Slots = append(resp.Slots, Slot{
			Label:     slot.Label(),
			StartTime: slot.Start,
			EndTime:   slot.End,
		})
	}

	uc.logger.Info("GetAvailableSlots: %d free slots for provider=%d on %s (degraded=%t)",
		len(resp.Slots), req.ProviderID, req.Date.Format(domain.DateFormat), resp.Degraded)

	return resp, nil
}

func (uc *UseCase) resolveDuration(req *Request) (int, error) {
	if req.DurationMinutes != nil {
		return *req.DurationMinutes, nil
	}
	if req.ServiceID == nil {
		return 0, nil
	}

	service, err := uc.services.Get(*req.ServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrServiceOptionNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", *req.ServiceID)
			return 0, ErrServiceNotFound
		}
		return 0, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	return service.DurationMinutes, nil
}
