package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicBooking/pkg/psqlbuilder"
)

const (
	walkInTable        = "walkin_appointments"
	onlineRequestTable = "online_requests"
)

var selectColumns = []string{
	"id",
	"patient_id",
	"patient_name",
	"provider_id",
	"service_id",
	"service_name",
	"service_price",
	"booking_date",
	"time_slot",
	"duration_minutes",
	"status",
	"notes",
	"cancellation_reason",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий бронирований одного источника.
// Walk-in записи и онлайн-заявки хранятся в разных таблицах с одинаковой схемой.
type Repository struct {
	db     DBExecutor
	source domain.BookingSource
	table  string
}

// NewRepository создает репозиторий для таблицы источника
func NewRepository(db DBExecutor, source domain.BookingSource) (*Repository, error) {
	table, err := tableFor(source)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, source: source, table: table}, nil
}

// Source возвращает источник, с которым работает репозиторий
func (r *Repository) Source() domain.BookingSource {
	return r.source
}

// Create создает новое бронирование
// Если в контексте передана активная транзакция, использует её.
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(r.table).
		Columns(
			"patient_id",
			"patient_name",
			"provider_id",
			"service_id",
			"service_name",
			"service_price",
			"booking_date",
			"time_slot",
			"duration_minutes",
			"status",
			"notes",
		).
		Values(
			booking.PatientID,
			booking.PatientName,
			booking.ProviderID,
			booking.ServiceID,
			booking.ServiceName,
			booking.ServicePrice,
			booking.Date,
			booking.TimeSlot,
			booking.DurationMinutes,
			booking.Status,
			booking.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	booking.Source = r.source
	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(selectColumns...).
		From(r.table).
		Where(squirrel.Eq{"id": id})

	// Внутри транзакции блокируем строку до конца изменения статуса
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := r.scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %w", ErrScanRow, err)
	}

	return booking, nil
}

// GetByFilter получает бронирования по фильтру.
//
// При filter.ForUpdate выборка на одну дату внутри транзакции идёт с FOR UPDATE:
// строки дня блокируются до коммита, чтобы проверка слота и вставка были атомарны.
// Чтение в read-only транзакции ForUpdate не выставляет.
func (r *Repository) GetByFilter(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(selectColumns...).From(r.table)

	if filter.Date != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"booking_date": dateOnly(*filter.Date)})
	}
	if filter.ProviderID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"provider_id": *filter.ProviderID})
	}
	if filter.PatientID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"patient_id": *filter.PatientID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		// Старые строки могут хранить статус в другом регистре
		selectBuilder = selectBuilder.Where(squirrel.Eq{"LOWER(status)": statuses})
	}
	if filter.ExcludeID != nil {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"id": *filter.ExcludeID})
	}

	if filter.IsSingleDay() {
		selectBuilder = selectBuilder.OrderBy("time_slot ASC")
	} else {
		selectBuilder = selectBuilder.OrderBy("booking_date DESC", "time_slot DESC")
	}

	if filter.ForUpdate && filter.IsSingleDay() && dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// UpdateStatus обновляет статус бронирования
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	query, args, err := psqlbuilder.Update(r.table).
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffecting(ctx, "UpdateStatus", query, args)
}

// Reschedule переносит бронирование на другую дату и слот
func (r *Repository) Reschedule(ctx context.Context, id int64, date time.Time, timeSlot string, status domain.BookingStatus) error {
	query, args, err := psqlbuilder.Update(r.table).
		Set("booking_date", dateOnly(date)).
		Set("time_slot", timeSlot).
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Reschedule - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffecting(ctx, "Reschedule", query, args)
}

// Cancel отменяет бронирование с указанием причины
func (r *Repository) Cancel(ctx context.Context, id int64, reason *string) error {
	query, args, err := psqlbuilder.Update(r.table).
		Set("status", domain.StatusCancelled).
		Set("cancellation_reason", reason).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Cancel - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffecting(ctx, "Cancel", query, args)
}

// Delete удаляет бронирование (физическое удаление)
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query, args, err := psqlbuilder.Delete(r.table).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	return r.execAffecting(ctx, "Delete", query, args)
}

func (r *Repository) execAffecting(ctx context.Context, op string, query string, args []interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute: %w", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %w", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var createdAt, updatedAt sql.NullTime
	var status string

	err := row.Scan(
		&booking.ID,
		&booking.PatientID,
		&booking.PatientName,
		&booking.ProviderID,
		&booking.ServiceID,
		&booking.ServiceName,
		&booking.ServicePrice,
		&booking.Date,
		&booking.TimeSlot,
		&booking.DurationMinutes,
		&status,
		&booking.Notes,
		&booking.CancellationReason,
		&booking.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Неизвестный статус сохраняем как есть: такое бронирование не блокирует слоты
	if parsed, parseErr := domain.ParseBookingStatus(status); parseErr == nil {
		booking.Status = parsed
	} else {
		booking.Status = domain.BookingStatus(status)
	}

	booking.Source = r.source
	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func (r *Repository) scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %w", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %w", ErrScanRow, err)
	}

	return bookings, nil
}

func tableFor(source domain.BookingSource) (string, error) {
	switch source {
	case domain.SourceWalkIn:
		return walkInTable, nil
	case domain.SourceOnlineRequest:
		return onlineRequestTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
