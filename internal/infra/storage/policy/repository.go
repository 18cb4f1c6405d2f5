package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicBooking/pkg/psqlbuilder"
)

const table = "booking_policies"

// Repository репозиторий политик записи
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория политик
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByProvider получает политику врача или общую политику клиники (providerID == nil)
func (r *Repository) GetByProvider(ctx context.Context, providerID *int64) (*domain.BookingPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"provider_id",
		"advance_booking_days",
		"min_booking_notice_minutes",
		"created_at",
		"updated_at",
	).
		From(table).
		Where(providerEq(providerID)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByProvider - build select query: %v", ErrBuildQuery, err)
	}

	var policy domain.BookingPolicy
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&policy.ID,
		&policy.ProviderID,
		&policy.AdvanceBookingDays,
		&policy.MinBookingNoticeMinutes,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByProvider - scan policy: %w", ErrScanRow, err)
	}

	policy.CreatedAt = createdAt.Time
	policy.UpdatedAt = updatedAt.Time

	return &policy, nil
}

// GetWithHierarchy получает политику с учетом приоритета:
// 1. Политика конкретного врача
// 2. Общая политика клиники
//
// Если не найдена ни на одном уровне, возвращает ErrPolicyNotFound
func (r *Repository) GetWithHierarchy(ctx context.Context, providerID int64) (*domain.BookingPolicy, error) {
	// 1. Политика врача
	policy, err := r.GetByProvider(ctx, &providerID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, ErrPolicyNotFound) {
		return nil, fmt.Errorf("%w: GetWithHierarchy - provider level: %w", ErrExecQuery, err)
	}

	// 2. Политика клиники
	policy, err = r.GetByProvider(ctx, nil)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, ErrPolicyNotFound) {
		return nil, fmt.Errorf("%w: GetWithHierarchy - clinic level: %w", ErrExecQuery, err)
	}

	return nil, ErrPolicyNotFound
}

// Upsert обновляет политику уровня или создает её, если строки нет.
// Вызывать внутри транзакции, чтобы обновление и вставка были согласованы.
func (r *Repository) Upsert(ctx context.Context, policy *domain.BookingPolicy) (*domain.BookingPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("advance_booking_days", policy.AdvanceBookingDays).
		Set("min_booking_notice_minutes", policy.MinBookingNoticeMinutes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(providerEq(policy.ProviderID)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build update query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&policy.ID, &createdAt, &updatedAt)
	if err == nil {
		policy.CreatedAt = createdAt.Time
		policy.UpdatedAt = updatedAt.Time
		return policy, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: Upsert - execute update: %w", ErrExecQuery, err)
	}

	// Строки нет - создаём
	query, args, err = psqlbuilder.Insert(table).
		Columns("provider_id", "advance_booking_days", "min_booking_notice_minutes").
		Values(policy.ProviderID, policy.AdvanceBookingDays, policy.MinBookingNoticeMinutes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&policy.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %w", ErrExecQuery, err)
	}

	policy.CreatedAt = createdAt.Time
	policy.UpdatedAt = updatedAt.Time

	return policy, nil
}

// providerEq условие по provider_id (NULL для политики клиники)
func providerEq(providerID *int64) squirrel.Eq {
	if providerID == nil {
		return squirrel.Eq{"provider_id": nil}
	}
	return squirrel.Eq{"provider_id": *providerID}
}
