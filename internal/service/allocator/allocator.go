package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// OnlineScope определяет, как онлайн-заявки блокируют слоты
type OnlineScope string

const (
	// ScopeClinic онлайн-заявка блокирует слот для всех врачей на эту дату
	ScopeClinic OnlineScope = "clinic"
	// ScopeProvider онлайн-заявка блокирует слот только своего врача
	ScopeProvider OnlineScope = "provider"
)

// Options политика расчёта слотов
type Options struct {
	// FailOpen: ошибка чтения источника считается отсутствием бронирований
	FailOpen bool
	// OnlineScope область блокировки для онлайн-заявок
	OnlineScope OnlineScope
}

// DefaultOptions fail-open и блокировка онлайн-заявками по всей клинике
func DefaultOptions() Options {
	return Options{FailOpen: true, OnlineScope: ScopeClinic}
}

// Query запрос свободных слотов
type Query struct {
	Date            time.Time
	ProviderID      int64
	DurationMinutes int // 0 - без проверки непрерывности
}

// Result свободные слоты в порядке каталога
type Result struct {
	Slots []domain.TimeSlot
	// Degraded: хотя бы один источник не прочитан и был принят пустым
	Degraded bool
}

// Allocator вычисляет свободные слоты по двум источникам бронирований
type Allocator struct {
	walkIn  BookingReader
	online  BookingReader
	catalog *domain.SlotCatalog
	opts    Options
	metrics Metrics
	logger  Logger
}

// New создает аллокатор. metrics может быть nil.
func New(
	walkIn BookingReader,
	online BookingReader,
	catalog *domain.SlotCatalog,
	opts Options,
	metrics Metrics,
	logger Logger,
) *Allocator {
	if opts.OnlineScope == "" {
		opts.OnlineScope = ScopeClinic
	}
	return &Allocator{
		walkIn:  walkIn,
		online:  online,
		catalog: catalog,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// Catalog возвращает каталог слотов
func (a *Allocator) Catalog() *domain.SlotCatalog {
	return a.catalog
}

// Available возвращает слоты, на которые можно записаться.
// Пустой список означает, что день полностью занят.
func (a *Allocator) Available(ctx context.Context, q Query) (*Result, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var (
		bookings []*domain.Booking
		degraded bool
	)

	for _, source := range domain.AllSources {
		fetched, err := a.fetch(ctx, source, q.Date, q.ProviderID, nil, false)
		if err != nil {
			a.incFetchFailure(source)
			if !a.opts.FailOpen {
				a.logger.Error("Available: failed to read %s bookings for provider=%d, date=%s: %v",
					source, q.ProviderID, q.Date.Format(domain.DateFormat), err)
				return nil, fmt.Errorf("%w: %s: %v", ErrBookingsUnavailable, source, err)
			}
			a.logger.Warn("Available: failed to read %s bookings for provider=%d, date=%s, treating as empty: %v",
				source, q.ProviderID, q.Date.Format(domain.DateFormat), err)
			degraded = true
			continue
		}
		bookings = append(bookings, fetched...)
	}

	blocked, malformed := BlockedIndices(a.catalog, bookings)
	for _, b := range malformed {
		a.incMalformed(b.Source)
		a.logger.Warn("Available: skipping %s booking id=%d with unknown time slot %q",
			b.Source, b.ID, b.TimeSlot)
	}

	mode := "single"
	if q.DurationMinutes > 0 {
		mode = "contiguous"
	}
	if a.metrics != nil {
		a.metrics.IncSlotComputation(mode)
	}

	return &Result{
		Slots:    freeFromBlocked(a.catalog, blocked, q.DurationMinutes),
		Degraded: degraded,
	}, nil
}

// FetchBlocking читает блокирующие бронирования обоих источников без fail-open.
// Используется при записи, где ошибка чтения должна отменить операцию.
// exclude убирает из выборки само бронирование (при смене статуса или переносе);
// ID уникален только внутри источника, поэтому исключение применяется к его таблице.
func (a *Allocator) FetchBlocking(ctx context.Context, date time.Time, providerID int64, exclude *domain.Booking) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for _, source := range domain.AllSources {
		var excludeID *int64
		if exclude != nil && exclude.Source == source {
			id := exclude.ID
			excludeID = &id
		}
		fetched, err := a.fetch(ctx, source, date, providerID, excludeID, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBookingsUnavailable, source, err)
		}
		bookings = append(bookings, fetched...)
	}
	return bookings, nil
}

func (a *Allocator) fetch(ctx context.Context, source domain.BookingSource, date time.Time, providerID int64, excludeID *int64, forUpdate bool) ([]*domain.Booking, error) {
	filter := a.filterFor(source, date, providerID)
	filter.ExcludeID = excludeID
	filter.ForUpdate = forUpdate

	switch source {
	case domain.SourceWalkIn:
		return a.walkIn.GetByFilter(ctx, filter)
	case domain.SourceOnlineRequest:
		return a.online.GetByFilter(ctx, filter)
	default:
		return nil, fmt.Errorf("%w: source %q", ErrInvalidQuery, source)
	}
}

// filterFor строит фильтр выборки: walk-in всегда по врачу,
// онлайн-заявки по врачу только при ScopeProvider
func (a *Allocator) filterFor(source domain.BookingSource, date time.Time, providerID int64) domain.BookingsFilter {
	day := date
	filter := domain.BookingsFilter{
		Date:     &day,
		Statuses: domain.BlockingStatuses,
	}

	if source == domain.SourceWalkIn || a.opts.OnlineScope == ScopeProvider {
		id := providerID
		filter.ProviderID = &id
	}

	return filter
}

func (a *Allocator) incFetchFailure(source domain.BookingSource) {
	if a.metrics != nil {
		a.metrics.IncSlotFetchFailure(string(source))
	}
}

func (a *Allocator) incMalformed(source domain.BookingSource) {
	if a.metrics != nil {
		a.metrics.IncMalformedBooking(string(source))
	}
}

func validateQuery(q Query) error {
	if q.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidQuery)
	}
	if q.ProviderID <= 0 {
		return fmt.Errorf("%w: providerID must be positive", ErrInvalidQuery)
	}
	if q.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidQuery)
	}
	return nil
}
