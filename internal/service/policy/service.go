package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	policyRepo "github.com/m04kA/SMC-ClinicBooking/internal/infra/storage/policy"
	userClient "github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/policy/models"
)

// Service сервис политик записи
type Service struct {
	policyRepo PolicyRepository
	userClient UserServiceClient
	txManager  TxManager
	logger     Logger
}

// NewService создает новый экземпляр сервиса политик
func NewService(
	policyRepo PolicyRepository,
	userClient UserServiceClient,
	txManager TxManager,
	logger Logger,
) *Service {
	return &Service{
		policyRepo: policyRepo,
		userClient: userClient,
		txManager:  txManager,
		logger:     logger,
	}
}

// GetEffective возвращает действующую политику врача.
// Приоритет: политика врача > политика клиники > значения по умолчанию
func (s *Service) GetEffective(ctx context.Context, providerID int64) (*domain.BookingPolicy, error) {
	policy, _, err := s.resolve(ctx, providerID)
	return policy, err
}

// GetForProvider возвращает действующую политику врача с уровнем, на котором она задана.
// Публичный метод - доступен всем
func (s *Service) GetForProvider(ctx context.Context, providerID int64) (*models.PolicyResponse, error) {
	if providerID <= 0 {
		return nil, fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	policy, level, err := s.resolve(ctx, providerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetForProvider: provider=%d uses %s policy", providerID, level)
	return models.FromDomainPolicy(policy, level), nil
}

// Upsert создает или обновляет политику врача или клиники.
// Доступно только администраторам
func (s *Service) Upsert(ctx context.Context, req *models.UpsertPolicyRequest) (*models.PolicyResponse, error) {
	s.logger.Info("Upsert: provider=%v, advanceDays=%d, notice=%d by user=%d",
		req.ProviderID, req.AdvanceBookingDays, req.MinBookingNoticeMinutes, req.UserID)

	// 1. Валидация
	if err := validatePolicy(req); err != nil {
		s.logger.Warn("Upsert: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем права доступа
	if err := s.requireAdmin(ctx, req.UserID); err != nil {
		return nil, err
	}

	// 3. Сохраняем в транзакции (UPDATE + INSERT при отсутствии строки)
	var saved *domain.BookingPolicy
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.policyRepo.Upsert(ctx, req.ToDomainPolicy())
		return err
	})
	if err != nil {
		s.logger.Error("Upsert: repository error: %v", err)
		return nil, fmt.Errorf("%w: Upsert - repository error: %v", ErrInternal, err)
	}

	level := models.LevelProvider
	if saved.IsClinicWide() {
		level = models.LevelClinic
	}

	s.logger.Info("Upsert: saved policy id=%d (level: %s)", saved.ID, level)
	return models.FromDomainPolicy(saved, level), nil
}

func (s *Service) resolve(ctx context.Context, providerID int64) (*domain.BookingPolicy, string, error) {
	policy, err := s.policyRepo.GetWithHierarchy(ctx, providerID)
	if err != nil {
		if errors.Is(err, policyRepo.ErrPolicyNotFound) {
			return domain.DefaultBookingPolicy(), models.LevelDefault, nil
		}
		s.logger.Error("resolve: failed to get policy for provider=%d: %v", providerID, err)
		return nil, "", fmt.Errorf("%w: failed to get policy: %w", ErrInternal, err)
	}

	if policy.IsClinicWide() {
		return policy, models.LevelClinic, nil
	}
	return policy, models.LevelProvider, nil
}

func (s *Service) requireAdmin(ctx context.Context, userID int64) error {
	user, err := s.userClient.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			s.logger.Warn("requireAdmin: user=%d not found", userID)
			return ErrAccessDenied
		}
		s.logger.Error("requireAdmin: failed to get user=%d: %v", userID, err)
		return fmt.Errorf("%w: failed to get user: %v", ErrInternal, err)
	}

	if user.DomainRole() != domain.RoleAdmin {
		s.logger.Warn("requireAdmin: user=%d has role %s", userID, user.Role)
		return ErrAccessDenied
	}
	return nil
}

func validatePolicy(req *models.UpsertPolicyRequest) error {
	if req.ProviderID != nil && *req.ProviderID <= 0 {
		return fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}
	if req.AdvanceBookingDays < domain.MinAdvanceBookingDays || req.AdvanceBookingDays > domain.MaxAdvanceBookingDays {
		return fmt.Errorf("%w: advanceBookingDays must be between %d and %d",
			ErrInvalidInput, domain.MinAdvanceBookingDays, domain.MaxAdvanceBookingDays)
	}
	if req.MinBookingNoticeMinutes < domain.MinBookingNoticeMinutes || req.MinBookingNoticeMinutes > domain.MaxBookingNoticeMinutes {
		return fmt.Errorf("%w: minBookingNoticeMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinBookingNoticeMinutes, domain.MaxBookingNoticeMinutes)
	}
	return nil
}
