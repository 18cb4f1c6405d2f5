package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/events"
	bookingRepo "github.com/m04kA/SMC-ClinicBooking/internal/infra/storage/booking"
	"github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings/models"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/schedule"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
	"github.com/m04kA/SMC-ClinicBooking/pkg/ptr"
)

// вторник 2026-10-20, 09:00 UTC
var now = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

var day = time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

const (
	patientID  = int64(100)
	providerID = int64(7)
	otherDoc   = int64(8)
	staffID    = int64(50)
	adminID    = int64(1)
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

// fakeRepo таблица одного источника в памяти
type fakeRepo struct {
	rows map[int64]*domain.Booking
}

func newFakeRepo(bookings ...*domain.Booking) *fakeRepo {
	r := &fakeRepo{rows: map[int64]*domain.Booking{}}
	for _, b := range bookings {
		r.rows[b.ID] = b
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := r.rows[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) GetByFilter(_ context.Context, f domain.BookingsFilter) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range r.rows {
		if f.Date != nil && !b.Date.Equal(*f.Date) {
			continue
		}
		if f.ProviderID != nil && b.ProviderID != *f.ProviderID {
			continue
		}
		if f.PatientID != nil && b.PatientID != *f.PatientID {
			continue
		}
		if f.ExcludeID != nil && b.ID == *f.ExcludeID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func hasStatus(statuses []domain.BookingStatus, s domain.BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, status domain.BookingStatus) error {
	b, ok := r.rows[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeRepo) Reschedule(_ context.Context, id int64, date time.Time, timeSlot string, status domain.BookingStatus) error {
	b, ok := r.rows[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Date, b.TimeSlot, b.Status = date, timeSlot, status
	return nil
}

func (r *fakeRepo) Cancel(_ context.Context, id int64, reason *string) error {
	b, ok := r.rows[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Status = domain.StatusCancelled
	b.CancellationReason = reason
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return bookingRepo.ErrBookingNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeUsers map[int64]*userservice.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*userservice.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, userservice.ErrUserNotFound
}

var users = fakeUsers{
	patientID:  {ID: patientID, Role: "patient"},
	providerID: {ID: providerID, Role: "dentist"},
	otherDoc:   {ID: otherDoc, Role: "dentist"},
	staffID:    {ID: staffID, Role: "staff"},
	adminID:    {ID: adminID, Role: "admin"},
}

type policies struct{}

func (policies) GetEffective(context.Context, int64) (*domain.BookingPolicy, error) {
	return &domain.BookingPolicy{AdvanceBookingDays: 30, MinBookingNoticeMinutes: 60}, nil
}

type publisher struct{ events []events.BookingEvent }

func (p *publisher) Publish(_ context.Context, _ string, v interface{}) error {
	p.events = append(p.events, v.(events.BookingEvent))
	return nil
}

type conflicts map[string]int

func (c conflicts) IncBookingConflict(op string) { c[op]++ }

type inlineTx struct{}

func (inlineTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (inlineTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	walkIn    *fakeRepo
	online    *fakeRepo
	publisher *publisher
	conflicts conflicts
	scope     allocator.OnlineScope
}

func booking(id int64, source domain.BookingSource, date time.Time, slot string, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:              id,
		Source:          source,
		PatientID:       patientID,
		ProviderID:      providerID,
		ServiceName:     "Консультация",
		Date:            date,
		TimeSlot:        slot,
		DurationMinutes: 30,
		Status:          status,
	}
}

func newFixture(walkIn, online []*domain.Booking) *fixture {
	return &fixture{
		walkIn:    newFakeRepo(walkIn...),
		online:    newFakeRepo(online...),
		publisher: &publisher{},
		conflicts: conflicts{},
		scope:     allocator.ScopeProvider,
	}
}

func (f *fixture) service(t *testing.T) *Service {
	t.Helper()
	catalog, err := domain.NewSlotCatalog("10:00", "17:00")
	require.NoError(t, err)

	alloc := allocator.New(f.walkIn, f.online, catalog, allocator.Options{OnlineScope: f.scope}, nil, logger.NewNop())
	calendar := schedule.NewCalendar(time.UTC, nil)

	svc := NewService(f.walkIn, f.online, alloc, policies{}, calendar, users, f.publisher, f.conflicts, inlineTx{}, logger.NewNop())
	svc.timeProvider = fixedTime{now: now}
	return svc
}

func TestGetByIDAccess(t *testing.T) {
	f := newFixture([]*domain.Booking{booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed)}, nil)
	svc := f.service(t)

	for _, userID := range []int64{patientID, providerID, staffID, adminID} {
		resp, err := svc.GetByID(context.Background(), domain.SourceWalkIn, 1, userID)
		require.NoError(t, err)
		assert.Equal(t, "walk_in", resp.Source)
	}

	_, err := svc.GetByID(context.Background(), domain.SourceWalkIn, 1, otherDoc)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetByID(context.Background(), domain.SourceOnlineRequest, 1, adminID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetPatientBookingsMergesSourcesNewestFirst(t *testing.T) {
	f := newFixture(
		[]*domain.Booking{
			booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed),
			booking(2, domain.SourceWalkIn, day.AddDate(0, 0, 2), "10:00 - 10:30", domain.StatusTreated),
		},
		[]*domain.Booking{
			booking(1, domain.SourceOnlineRequest, day, "15:00 - 15:30", domain.StatusPending),
		},
	)
	svc := f.service(t)

	resp, err := svc.GetPatientBookings(context.Background(), &models.GetPatientBookingsRequest{UserID: patientID, PatientID: patientID})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 3)
	assert.Equal(t, "2026-10-23", resp.Bookings[0].BookingDate)
	assert.Equal(t, "15:00 - 15:30", resp.Bookings[1].TimeSlot)
	assert.Equal(t, "11:00 - 11:30", resp.Bookings[2].TimeSlot)

	resp, err = svc.GetPatientBookings(context.Background(), &models.GetPatientBookingsRequest{
		UserID: staffID, PatientID: patientID, Status: ptr.Ptr("PENDING"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "online_request", resp.Bookings[0].Source)

	_, err = svc.GetPatientBookings(context.Background(), &models.GetPatientBookingsRequest{UserID: providerID, PatientID: patientID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetPatientBookings(context.Background(), &models.GetPatientBookingsRequest{
		UserID: patientID, PatientID: patientID, Status: ptr.Ptr("unknown"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetProviderBookingsFilters(t *testing.T) {
	f := newFixture(
		[]*domain.Booking{booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed)},
		[]*domain.Booking{booking(1, domain.SourceOnlineRequest, day.AddDate(0, 0, 1), "12:00 - 12:30", domain.StatusPending)},
	)
	svc := f.service(t)

	resp, err := svc.GetProviderBookings(context.Background(), &models.GetProviderBookingsRequest{UserID: providerID, ProviderID: providerID})
	require.NoError(t, err)
	assert.Len(t, resp.Bookings, 2)

	resp, err = svc.GetProviderBookings(context.Background(), &models.GetProviderBookingsRequest{
		UserID: staffID, ProviderID: providerID, Date: &day,
	})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "walk_in", resp.Bookings[0].Source)

	resp, err = svc.GetProviderBookings(context.Background(), &models.GetProviderBookingsRequest{
		UserID: staffID, ProviderID: providerID, Source: ptr.Ptr("online_request"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 1)

	_, err = svc.GetProviderBookings(context.Background(), &models.GetProviderBookingsRequest{UserID: otherDoc, ProviderID: providerID})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(nil, []*domain.Booking{booking(3, domain.SourceOnlineRequest, day, "11:00 - 11:30", domain.StatusPending)})
	svc := f.service(t)

	resp, err := svc.UpdateStatus(context.Background(), domain.SourceOnlineRequest, 3, &models.UpdateStatusRequest{UserID: providerID, Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, domain.StatusConfirmed, f.online.rows[3].Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.StatusPending, *f.publisher.events[0].PreviousStatus)

	_, err = svc.UpdateStatus(context.Background(), domain.SourceOnlineRequest, 3, &models.UpdateStatusRequest{UserID: providerID, Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), domain.SourceOnlineRequest, 3, &models.UpdateStatusRequest{UserID: otherDoc, Status: "paid"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.UpdateStatus(context.Background(), domain.SourceOnlineRequest, 3, &models.UpdateStatusRequest{UserID: staffID, Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusRechecksConflicts(t *testing.T) {
	f := newFixture(
		[]*domain.Booking{booking(3, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed)},
		[]*domain.Booking{booking(3, domain.SourceOnlineRequest, day, "11:00 - 11:30", domain.StatusPending)},
	)
	svc := f.service(t)

	_, err := svc.UpdateStatus(context.Background(), domain.SourceOnlineRequest, 3, &models.UpdateStatusRequest{UserID: staffID, Status: "confirmed"})
	require.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, 1, f.conflicts["update_status"])
	assert.Equal(t, domain.StatusPending, f.online.rows[3].Status)
	assert.Empty(t, f.publisher.events)

	// уже блокирующее бронирование не проверяется повторно
	_, err = svc.UpdateStatus(context.Background(), domain.SourceWalkIn, 3, &models.UpdateStatusRequest{UserID: staffID, Status: "paid"})
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	f := newFixture([]*domain.Booking{
		booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed),
		booking(2, domain.SourceWalkIn, day, "12:00 - 12:30", domain.StatusTreated),
	}, nil)
	svc := f.service(t)

	_, err := svc.Cancel(context.Background(), domain.SourceWalkIn, 1, &models.CancelBookingRequest{UserID: otherDoc})
	assert.ErrorIs(t, err, ErrAccessDenied)

	resp, err := svc.Cancel(context.Background(), domain.SourceWalkIn, 1, &models.CancelBookingRequest{
		UserID: patientID, CancellationReason: ptr.Ptr("заболел"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "заболел", *resp.CancellationReason)
	assert.NotNil(t, resp.CancelledAt)
	require.Len(t, f.publisher.events, 1)

	_, err = svc.Cancel(context.Background(), domain.SourceWalkIn, 2, &models.CancelBookingRequest{UserID: staffID})
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestReschedule(t *testing.T) {
	f := newFixture(
		[]*domain.Booking{
			booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed),
			booking(2, domain.SourceWalkIn, day, "14:00 - 14:30", domain.StatusConfirmed),
		},
		[]*domain.Booking{booking(1, domain.SourceOnlineRequest, day, "15:00 - 15:30", domain.StatusPending)},
	)
	svc := f.service(t)

	// занято другим бронированием
	_, err := svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "14:00 - 14:30"})
	require.ErrorIs(t, err, ErrSlotNotAvailable)

	// сдвиг в пределах своего же слота не конфликтует сам с собой
	resp, err := svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "11:00"})
	require.NoError(t, err)
	assert.Equal(t, "11:00 - 11:30", resp.TimeSlot)

	// онлайн-заявка возвращается в ожидание без проверки конфликтов
	resp, err = svc.Reschedule(context.Background(), domain.SourceOnlineRequest, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "14:00 - 14:30"})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, domain.StatusPending, f.online.rows[1].Status)

	_, err = svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: patientID, Date: day, TimeSlot: "16:00 - 16:30"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "18:00 - 18:30"})
	assert.ErrorIs(t, err, ErrInvalidTimeSlot)

	_, err = svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: staffID, Date: day.AddDate(0, 0, -3), TimeSlot: "16:00 - 16:30"})
	assert.ErrorIs(t, err, ErrInvalidBookingDate)
}

func TestRescheduleKeepsBlockingStatus(t *testing.T) {
	f := newFixture(
		[]*domain.Booking{
			booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusPaid),
			booking(2, domain.SourceWalkIn, day, "16:00 - 16:30", domain.StatusReschedule),
		},
		[]*domain.Booking{
			booking(1, domain.SourceOnlineRequest, day, "12:00 - 12:30", domain.StatusConfirmed),
			booking(2, domain.SourceOnlineRequest, day, "13:00 - 13:30", domain.StatusReschedule),
		},
	)
	svc := f.service(t)

	// оплата не теряется при переносе
	resp, err := svc.Reschedule(context.Background(), domain.SourceWalkIn, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "15:00 - 15:30"})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, domain.StatusPaid, f.walkIn.rows[1].Status)
	assert.Equal(t, "15:00 - 15:30", f.walkIn.rows[1].TimeSlot)

	// подтверждённая онлайн-заявка остаётся подтверждённой и проверяется на конфликт
	_, err = svc.Reschedule(context.Background(), domain.SourceOnlineRequest, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "15:00 - 15:30"})
	require.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, "12:00 - 12:30", f.online.rows[1].TimeSlot)

	resp, err = svc.Reschedule(context.Background(), domain.SourceOnlineRequest, 1, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "14:00 - 14:30"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, domain.StatusConfirmed, f.online.rows[1].Status)

	// запись в статусе reschedule начинает заново со статуса своего источника
	resp, err = svc.Reschedule(context.Background(), domain.SourceWalkIn, 2, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "10:00 - 10:30"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)

	resp, err = svc.Reschedule(context.Background(), domain.SourceOnlineRequest, 2, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "16:30 - 17:00"})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
}

func TestClinicScopeOnlineRequestsBlockOtherProviders(t *testing.T) {
	otherDocRequest := booking(1, domain.SourceOnlineRequest, day, "11:00 - 11:30", domain.StatusConfirmed)
	otherDocRequest.ProviderID = otherDoc
	otherDocLater := booking(2, domain.SourceOnlineRequest, day, "15:00 - 15:30", domain.StatusPaid)
	otherDocLater.ProviderID = otherDoc

	newClinicFixture := func() *fixture {
		f := newFixture(
			[]*domain.Booking{
				booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusPending),
				booking(2, domain.SourceWalkIn, day, "10:00 - 10:30", domain.StatusConfirmed),
			},
			[]*domain.Booking{otherDocRequest, otherDocLater},
		)
		f.scope = allocator.ScopeClinic
		return f
	}

	t.Run("status change", func(t *testing.T) {
		f := newClinicFixture()
		_, err := f.service(t).UpdateStatus(context.Background(), domain.SourceWalkIn, 1, &models.UpdateStatusRequest{UserID: staffID, Status: "confirmed"})
		require.ErrorIs(t, err, ErrSlotNotAvailable)
		assert.Equal(t, 1, f.conflicts["update_status"])
		assert.Equal(t, domain.StatusPending, f.walkIn.rows[1].Status)
	})

	t.Run("reschedule", func(t *testing.T) {
		f := newClinicFixture()
		_, err := f.service(t).Reschedule(context.Background(), domain.SourceWalkIn, 2, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "15:00 - 15:30"})
		require.ErrorIs(t, err, ErrSlotNotAvailable)
		assert.Equal(t, 1, f.conflicts["reschedule"])
		assert.Equal(t, "10:00 - 10:30", f.walkIn.rows[2].TimeSlot)
	})

	t.Run("provider scope ignores other providers", func(t *testing.T) {
		f := newClinicFixture()
		f.scope = allocator.ScopeProvider
		svc := f.service(t)

		_, err := svc.UpdateStatus(context.Background(), domain.SourceWalkIn, 1, &models.UpdateStatusRequest{UserID: staffID, Status: "confirmed"})
		require.NoError(t, err)
		_, err = svc.Reschedule(context.Background(), domain.SourceWalkIn, 2, &models.RescheduleRequest{UserID: staffID, Date: day, TimeSlot: "15:00 - 15:30"})
		require.NoError(t, err)
	})
}

func TestDeleteIsAdminOnly(t *testing.T) {
	f := newFixture([]*domain.Booking{booking(1, domain.SourceWalkIn, day, "11:00 - 11:30", domain.StatusConfirmed)}, nil)
	svc := f.service(t)

	err := svc.Delete(context.Background(), domain.SourceWalkIn, 1, staffID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, svc.Delete(context.Background(), domain.SourceWalkIn, 1, adminID))
	assert.Empty(t, f.walkIn.rows)

	err = svc.Delete(context.Background(), domain.SourceWalkIn, 1, adminID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
