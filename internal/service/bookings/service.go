package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/events"
	bookingRepo "github.com/m04kA/SMC-ClinicBooking/internal/infra/storage/booking"
	userClient "github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings/models"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/schedule"
)

// Service сервис для работы с бронированиями обоих источников
type Service struct {
	repos        map[domain.BookingSource]BookingRepository
	allocator    SlotAllocator
	policies     PolicyProvider
	calendar     Calendar
	userClient   UserServiceClient
	publisher    EventPublisher
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований. metrics может быть nil.
func NewService(
	walkInRepo BookingRepository,
	onlineRepo BookingRepository,
	slotAllocator SlotAllocator,
	policies PolicyProvider,
	calendar Calendar,
	userClient UserServiceClient,
	publisher EventPublisher,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		repos: map[domain.BookingSource]BookingRepository{
			domain.SourceWalkIn:        walkInRepo,
			domain.SourceOnlineRequest: onlineRepo,
		},
		allocator:    slotAllocator,
		policies:     policies,
		calendar:     calendar,
		userClient:   userClient,
		publisher:    publisher,
		metrics:      metrics,
		txManager:    txManager,
		timeProvider: realTimeProvider{},
		logger:       logger,
	}
}

// GetByID получает бронирование по ID.
// Видят: пациент-владелец, врач бронирования, ресепшн и администратор.
func (s *Service) GetByID(ctx context.Context, source domain.BookingSource, id int64, userID int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching %s booking id=%d for user=%d", source, id, userID)

	repo, err := s.repo(source)
	if err != nil {
		return nil, err
	}

	booking, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("GetByID", id, err)
	}

	if booking.PatientID != userID && booking.ProviderID != userID {
		actor, err := s.actor(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !actor.DomainRole().IsBackOffice() {
			s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", userID, id)
			return nil, ErrAccessDenied
		}
	}

	s.logger.Info("GetByID: successfully fetched booking id=%d", id)
	return models.FromDomainBooking(booking), nil
}

// GetPatientBookings получает историю бронирований пациента из обоих источников, новые первыми
func (s *Service) GetPatientBookings(ctx context.Context, req *models.GetPatientBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetPatientBookings: fetching bookings for patient=%d, user=%d, status=%v", req.PatientID, req.UserID, req.Status)

	if req.PatientID <= 0 {
		return nil, fmt.Errorf("%w: patientID must be positive", ErrInvalidInput)
	}

	if req.UserID != req.PatientID {
		if err := s.requireBackOffice(ctx, req.UserID); err != nil {
			s.logger.Warn("GetPatientBookings: access denied for user=%d to patient=%d", req.UserID, req.PatientID)
			return nil, err
		}
	}

	filter := domain.BookingsFilter{PatientID: &req.PatientID}
	if req.Status != nil {
		status, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetPatientBookings: invalid status=%s", *req.Status)
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Statuses = []domain.BookingStatus{status}
	}

	bookings, err := s.fetchAll(ctx, domain.AllSources, filter)
	if err != nil {
		s.logger.Error("GetPatientBookings: repository error for patient=%d: %v", req.PatientID, err)
		return nil, fmt.Errorf("%w: GetPatientBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetPatientBookings: successfully fetched %d bookings for patient=%d", len(bookings), req.PatientID)
	return models.FromDomainBookingList(bookings), nil
}

// GetProviderBookings получает расписание врача с фильтрацией по дате, статусу и источнику.
// Доступно ресепшн, администратору и самому врачу.
func (s *Service) GetProviderBookings(ctx context.Context, req *models.GetProviderBookingsRequest) (*models.BookingListResponse, error) {
	logMsg := fmt.Sprintf("GetProviderBookings: fetching bookings for provider=%d, user=%d", req.ProviderID, req.UserID)
	if req.Date != nil {
		logMsg += fmt.Sprintf(", date=%s", req.Date.Format(domain.DateFormat))
	}
	if req.Status != nil {
		logMsg += fmt.Sprintf(", status=%s", *req.Status)
	}
	if req.Source != nil {
		logMsg += fmt.Sprintf(", source=%s", *req.Source)
	}
	s.logger.Info(logMsg)

	if req.ProviderID <= 0 {
		return nil, fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	if req.UserID != req.ProviderID {
		if err := s.requireBackOffice(ctx, req.UserID); err != nil {
			s.logger.Warn("GetProviderBookings: access denied for user=%d to provider=%d", req.UserID, req.ProviderID)
			return nil, err
		}
	}

	filter := domain.BookingsFilter{ProviderID: &req.ProviderID, Date: req.Date}
	if req.Status != nil {
		status, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Statuses = []domain.BookingStatus{status}
	}

	sources := domain.AllSources
	if req.Source != nil {
		source, err := domain.ParseBookingSource(*req.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		sources = []domain.BookingSource{source}
	}

	bookings, err := s.fetchAll(ctx, sources, filter)
	if err != nil {
		s.logger.Error("GetProviderBookings: repository error for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: GetProviderBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetProviderBookings: successfully fetched %d bookings for provider=%d", len(bookings), req.ProviderID)
	return models.FromDomainBookingList(bookings), nil
}

// UpdateStatus обновляет статус бронирования.
// Доступно ресепшн, администратору и врачу бронирования. Переход в блокирующий статус
// заново проверяет, что слоты бронирования свободны.
func (s *Service) UpdateStatus(ctx context.Context, source domain.BookingSource, id int64, req *models.UpdateStatusRequest) (*models.BookingResponse, error) {
	s.logger.Info("UpdateStatus: updating %s booking id=%d to status=%s by user=%d", source, id, req.Status, req.UserID)

	newStatus, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for booking id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	repo, err := s.repo(source)
	if err != nil {
		return nil, err
	}

	actor, err := s.actor(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var (
		updated  *domain.Booking
		previous domain.BookingStatus
	)

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 1. Бронирование под блокировкой строки
		booking, err := repo.GetByID(txCtx, id)
		if err != nil {
			return s.mapRepoError("UpdateStatus", id, err)
		}

		// 2. Права: ресепшн, администратор или врач бронирования
		if !canManage(actor, booking) {
			s.logger.Warn("UpdateStatus: access denied for user=%d to booking id=%d", req.UserID, id)
			return ErrAccessDenied
		}

		// 3. Переход должен быть разрешён
		if !booking.Status.CanTransitionTo(newStatus) {
			s.logger.Warn("UpdateStatus: transition %s -> %s not allowed for booking id=%d", booking.Status, newStatus, id)
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, newStatus)
		}

		// 4. Бронирование начинает занимать слоты: проверяем конфликты без него самого
		if newStatus.Blocks() && !booking.Status.Blocks() {
			if err := s.ensureFree(txCtx, "update_status", booking.Date, booking.TimeSlot, booking.DurationMinutes, booking); err != nil {
				return err
			}
		}

		// 5. Обновляем статус
		if err := repo.UpdateStatus(txCtx, id, newStatus); err != nil {
			return s.mapRepoError("UpdateStatus", id, err)
		}

		previous = booking.Status
		booking.Status = newStatus
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("UpdateStatus: successfully updated booking id=%d: %s -> %s", id, previous, newStatus)
	s.publishStatusChanged(ctx, updated, previous)
	return models.FromDomainBooking(updated), nil
}

// Cancel отменяет бронирование.
// Пациент может отменить своё бронирование, ресепшн и администратор любое.
func (s *Service) Cancel(ctx context.Context, source domain.BookingSource, id int64, req *models.CancelBookingRequest) (*models.BookingResponse, error) {
	s.logger.Info("Cancel: cancelling %s booking id=%d by user=%d", source, id, req.UserID)

	if req.CancellationReason != nil && len(*req.CancellationReason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: cancellationReason must be at most %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
	}

	repo, err := s.repo(source)
	if err != nil {
		return nil, err
	}

	booking, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("Cancel", id, err)
	}

	// Проверяем права до отмены
	if booking.PatientID != req.UserID {
		if err := s.requireBackOffice(ctx, req.UserID); err != nil {
			s.logger.Warn("Cancel: access denied for user=%d to cancel booking id=%d", req.UserID, id)
			return nil, err
		}
	}

	var previous domain.BookingStatus
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		current, err := repo.GetByID(txCtx, id)
		if err != nil {
			return s.mapRepoError("Cancel", id, err)
		}

		if !current.CanBeCancelled() {
			s.logger.Warn("Cancel: booking id=%d cannot be cancelled, status=%s", id, current.Status)
			return ErrCannotCancel
		}

		if err := repo.Cancel(txCtx, id, req.CancellationReason); err != nil {
			return s.mapRepoError("Cancel", id, err)
		}

		previous = current.Status
		booking = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()
	booking.Status = domain.StatusCancelled
	booking.CancellationReason = req.CancellationReason
	booking.CancelledAt = &now

	s.logger.Info("Cancel: successfully cancelled booking id=%d", id)
	s.publishStatusChanged(ctx, booking, previous)
	return models.FromDomainBooking(booking), nil
}

// Reschedule переносит бронирование на другую дату и слот.
// Доступно ресепшн и администратору. Walk-in остаётся подтверждённым и проверяется на конфликты,
// онлайн-заявка возвращается в ожидание.
func (s *Service) Reschedule(ctx context.Context, source domain.BookingSource, id int64, req *models.RescheduleRequest) (*models.BookingResponse, error) {
	s.logger.Info("Reschedule: moving %s booking id=%d to %s %q by user=%d",
		source, id, req.Date.Format(domain.DateFormat), req.TimeSlot, req.UserID)

	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	repo, err := s.repo(source)
	if err != nil {
		return nil, err
	}

	catalog := s.allocator.Catalog()
	slotIndex := catalog.IndexOf(req.TimeSlot)
	if slotIndex < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, req.TimeSlot)
	}
	slot := catalog.At(slotIndex)

	if err := s.requireBackOffice(ctx, req.UserID); err != nil {
		s.logger.Warn("Reschedule: access denied for user=%d", req.UserID)
		return nil, err
	}

	now := s.timeProvider.Now()

	var (
		updated  *domain.Booking
		previous domain.BookingStatus
	)

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		booking, err := repo.GetByID(txCtx, id)
		if err != nil {
			return s.mapRepoError("Reschedule", id, err)
		}

		if booking.Status.IsTerminal() {
			s.logger.Warn("Reschedule: booking id=%d is %s", id, booking.Status)
			return fmt.Errorf("%w: booking is %s", ErrInvalidTransition, booking.Status)
		}

		// Оплаченная или подтверждённая запись сохраняет статус, остальные начинают заново
		newStatus := source.RescheduledStatus(booking.Status)
		if newStatus != booking.Status && !booking.Status.CanTransitionTo(newStatus) {
			s.logger.Warn("Reschedule: transition %s -> %s is not allowed for booking id=%d", booking.Status, newStatus, id)
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, newStatus)
		}

		policy, err := s.policies.GetEffective(txCtx, booking.ProviderID)
		if err != nil {
			s.logger.Error("Reschedule: failed to get policy: %v", err)
			return fmt.Errorf("%w: Reschedule - failed to get policy: %w", ErrInternal, err)
		}

		if err := s.calendar.CheckSlot(req.Date, slot, now, policy); err != nil {
			s.logger.Warn("Reschedule: schedule check failed: %v", err)
			return mapScheduleError(err)
		}

		if newStatus.Blocks() {
			if err := s.ensureFree(txCtx, "reschedule", req.Date, slot.Label(), booking.DurationMinutes, booking); err != nil {
				return err
			}
		}

		if err := repo.Reschedule(txCtx, id, req.Date, slot.Label(), newStatus); err != nil {
			return s.mapRepoError("Reschedule", id, err)
		}

		previous = booking.Status
		booking.Date = req.Date
		booking.TimeSlot = slot.Label()
		booking.Status = newStatus
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule: successfully moved booking id=%d to %s %s", id, updated.Date.Format(domain.DateFormat), updated.TimeSlot)
	s.publishStatusChanged(ctx, updated, previous)
	return models.FromDomainBooking(updated), nil
}

// Delete физически удаляет бронирование. Доступно только администратору.
func (s *Service) Delete(ctx context.Context, source domain.BookingSource, id int64, userID int64) error {
	s.logger.Info("Delete: deleting %s booking id=%d by user=%d", source, id, userID)

	repo, err := s.repo(source)
	if err != nil {
		return err
	}

	actor, err := s.actor(ctx, userID)
	if err != nil {
		return err
	}
	if actor.DomainRole() != domain.RoleAdmin {
		s.logger.Warn("Delete: user=%d (role=%s) is not an admin", userID, actor.Role)
		return ErrAccessDenied
	}

	if err := repo.Delete(ctx, id); err != nil {
		return s.mapRepoError("Delete", id, err)
	}

	s.logger.Info("Delete: successfully deleted booking id=%d", id)
	return nil
}

// Вспомогательные методы

func (s *Service) repo(source domain.BookingSource) (BookingRepository, error) {
	repo, ok := s.repos[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, source)
	}
	return repo, nil
}

// ensureFree проверяет, что слоты от timeSlot на duration минут свободны, не считая самого бронирования
func (s *Service) ensureFree(ctx context.Context, op string, date time.Time, timeSlot string, duration int, self *domain.Booking) error {
	catalog := s.allocator.Catalog()
	slotIndex := catalog.IndexOf(timeSlot)
	if slotIndex < 0 {
		s.logger.Warn("%s: booking id=%d has slot %q outside of catalog", op, self.ID, timeSlot)
		return fmt.Errorf("%w: %q", ErrInvalidTimeSlot, timeSlot)
	}

	others, err := s.allocator.FetchBlocking(ctx, date, self.ProviderID, self)
	if err != nil {
		s.logger.Error("%s: failed to get bookings: %v", op, err)
		return fmt.Errorf("%w: %s - failed to get bookings: %w", ErrInternal, op, err)
	}

	if !allocator.IsFree(catalog, others, slotIndex, duration) {
		s.logger.Warn("%s: slot %s on %s is taken", op, timeSlot, date.Format(domain.DateFormat))
		if s.metrics != nil {
			s.metrics.IncBookingConflict(op)
		}
		return ErrSlotNotAvailable
	}
	return nil
}

func (s *Service) fetchAll(ctx context.Context, sources []domain.BookingSource, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	var result []*domain.Booking

	err := s.txManager.DoReadOnly(ctx, func(txCtx context.Context) error {
		for _, source := range sources {
			bookings, err := s.repos[source].GetByFilter(txCtx, filter)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
			result = append(result, bookings...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Новые первыми; метки слотов "HH:MM - HH:MM" сортируются лексикографически
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].TimeSlot > result[j].TimeSlot
	})

	return result, nil
}

func (s *Service) actor(ctx context.Context, userID int64) (*userClient.User, error) {
	user, err := s.userClient.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			s.logger.Warn("actor: user id=%d not found", userID)
			return nil, ErrAccessDenied
		}
		s.logger.Error("actor: failed to get user id=%d: %v", userID, err)
		return nil, fmt.Errorf("%w: failed to get user: %v", ErrInternal, err)
	}
	return user, nil
}

func (s *Service) requireBackOffice(ctx context.Context, userID int64) error {
	actor, err := s.actor(ctx, userID)
	if err != nil {
		return err
	}
	if !actor.DomainRole().IsBackOffice() {
		return ErrAccessDenied
	}
	return nil
}

// canManage ресепшн, администратор или врач этого бронирования
func canManage(actor *userClient.User, booking *domain.Booking) bool {
	role := actor.DomainRole()
	if role.IsBackOffice() {
		return true
	}
	return role == domain.RoleDentist && actor.ID == booking.ProviderID
}

func (s *Service) mapRepoError(op string, id int64, err error) error {
	if errors.Is(err, bookingRepo.ErrBookingNotFound) {
		s.logger.Warn("%s: booking id=%d not found", op, id)
		return ErrBookingNotFound
	}
	s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
	return fmt.Errorf("%w: %s - repository error: %w", ErrInternal, op, err)
}

func (s *Service) publishStatusChanged(ctx context.Context, booking *domain.Booking, previous domain.BookingStatus) {
	event := events.NewBookingEvent(booking, &previous, s.timeProvider.Now())
	if err := s.publisher.Publish(ctx, events.KeyBookingStatusChanged, event); err != nil {
		s.logger.Warn("publish: failed to publish status change for booking id=%d: %v", booking.ID, err)
	}
}

// mapScheduleError переводит ошибки календаря в ошибки сервиса
func mapScheduleError(err error) error {
	switch {
	case errors.Is(err, schedule.ErrDateInPast):
		return fmt.Errorf("%w: %v", ErrInvalidBookingDate, err)
	case errors.Is(err, schedule.ErrDateTooFarInFuture):
		return fmt.Errorf("%w: %v", ErrDateTooFarInFuture, err)
	case errors.Is(err, schedule.ErrClinicClosed):
		return ErrClinicClosed
	case errors.Is(err, schedule.ErrTooLate):
		return fmt.Errorf("%w: %v", ErrTooLate, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
