package get_available_slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/schedule"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
	"github.com/m04kA/SMC-ClinicBooking/pkg/ptr"
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

type reader struct {
	bookings []*domain.Booking
	err      error
}

func (r *reader) GetByFilter(_ context.Context, f domain.BookingsFilter) ([]*domain.Booking, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Booking
	for _, b := range r.bookings {
		if f.ProviderID != nil && b.ProviderID != *f.ProviderID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type policies struct {
	policy *domain.BookingPolicy
	err    error
}

func (p policies) GetEffective(context.Context, int64) (*domain.BookingPolicy, error) {
	return p.policy, p.err
}

// вторник 2026-10-20, 09:00 UTC
var now = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

type fixture struct {
	walkIn *reader
	online *reader
	policy policies
	opts   allocator.Options
}

func newFixture() *fixture {
	return &fixture{
		walkIn: &reader{},
		online: &reader{},
		policy: policies{policy: &domain.BookingPolicy{AdvanceBookingDays: 30, MinBookingNoticeMinutes: 60}},
		opts:   allocator.DefaultOptions(),
	}
}

func (f *fixture) useCase(t *testing.T) *UseCase {
	t.Helper()
	catalog, err := domain.NewSlotCatalog("10:00", "17:00")
	require.NoError(t, err)
	services, err := domain.NewServiceCatalog([]domain.ServiceOption{
		{ID: 1, Name: "Консультация", Price: 1500, DurationMinutes: 30},
		{ID: 2, Name: "Лечение кариеса", Price: 6000, DurationMinutes: 60},
	})
	require.NoError(t, err)

	calendar := schedule.NewCalendar(time.UTC, map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	})
	alloc := allocator.New(f.walkIn, f.online, catalog, f.opts, nil, logger.NewNop())

	uc := NewUseCase(alloc, f.policy, services, calendar, logger.NewNop())
	uc.timeProvider = fixedTime{now: now}
	return uc
}

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func confirmed(providerID int64, slot string) *domain.Booking {
	return &domain.Booking{ProviderID: providerID, TimeSlot: slot, DurationMinutes: 30, Status: domain.StatusConfirmed, Date: day(21)}
}

func labels(resp *Response) []string {
	out := make([]string, len(resp.Slots))
	for i, s := range resp.Slots {
		out[i] = s.Label
	}
	return out
}

func TestExecuteServiceDuration(t *testing.T) {
	f := newFixture()
	f.walkIn.bookings = []*domain.Booking{confirmed(1, "11:00 - 11:30")}
	uc := f.useCase(t)

	resp, err := uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(21), ServiceID: ptr.Ptr(int64(2))})
	require.NoError(t, err)

	assert.Equal(t, 60, resp.DurationMinutes)
	assert.False(t, resp.Degraded)
	got := labels(resp)
	assert.Len(t, got, 11)
	assert.NotContains(t, got, "10:30 - 11:00")
	assert.NotContains(t, got, "11:00 - 11:30")
	assert.NotContains(t, got, "16:30 - 17:00")
}

func TestExecuteExplicitDurationWinsOverService(t *testing.T) {
	uc := newFixture().useCase(t)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID:      1,
		Date:            day(21),
		ServiceID:       ptr.Ptr(int64(2)),
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Len(t, resp.Slots, 14)
}

func TestExecuteTodayAppliesNotice(t *testing.T) {
	uc := newFixture().useCase(t)

	resp, err := uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(20)})
	require.NoError(t, err)
	// 09:00 + 60 минут: доступны все слоты с 10:00
	assert.Len(t, resp.Slots, 14)

	uc.timeProvider = fixedTime{now: now.Add(3 * time.Hour)}
	resp, err = uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(20)})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Slots)
	assert.Equal(t, "13:00 - 13:30", resp.Slots[0].Label)
}

func TestExecuteClosedDayIsEmpty(t *testing.T) {
	uc := newFixture().useCase(t)

	resp, err := uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(24)})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestExecuteDateErrors(t *testing.T) {
	uc := newFixture().useCase(t)

	_, err := uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(19)})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(20).AddDate(0, 2, 0)})
	assert.ErrorIs(t, err, ErrDateTooFarInFuture)
}

func TestExecuteValidation(t *testing.T) {
	uc := newFixture().useCase(t)

	_, err := uc.Execute(context.Background(), &Request{ProviderID: 0, Date: day(21)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{ProviderID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(21), DurationMinutes: ptr.Ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{ProviderID: 1, Date: day(21), ServiceID: ptr.Ptr(int64(77))})
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestExecuteDegradedAndFailClosed(t *testing.T) {
	f := newFixture()
	f.online.err = errors.New("relation does not exist")
	resp, err := f.useCase(t).Execute(context.Background(), &Request{ProviderID: 1, Date: day(21)})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Len(t, resp.Slots, 14)

	f.opts = allocator.Options{FailOpen: false}
	_, err = f.useCase(t).Execute(context.Background(), &Request{ProviderID: 1, Date: day(21)})
	assert.ErrorIs(t, err, ErrBookingsUnavailable)
}

func TestExecutePolicyError(t *testing.T) {
	f := newFixture()
	f.policy = policies{err: errors.New("db down")}

	_, err := f.useCase(t).Execute(context.Background(), &Request{ProviderID: 1, Date: day(21)})
	assert.ErrorIs(t, err, ErrInternal)
}
