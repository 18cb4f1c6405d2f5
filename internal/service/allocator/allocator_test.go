package allocator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
)

type fakeReader struct {
	bookings []*domain.Booking
	err      error
	filters  []domain.BookingsFilter
}

// GetByFilter эмулирует запрос к таблице: дата, врач и статусы
func (f *fakeReader) GetByFilter(_ context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}

	var out []*domain.Booking
	for _, b := range f.bookings {
		if filter.Date != nil && !b.Date.Equal(*filter.Date) {
			continue
		}
		if filter.ProviderID != nil && b.ProviderID != *filter.ProviderID {
			continue
		}
		if filter.ExcludeID != nil && b.ID == *filter.ExcludeID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type fakeMetrics struct {
	computations  map[string]int
	fetchFailures map[string]int
	malformed     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		computations:  map[string]int{},
		fetchFailures: map[string]int{},
		malformed:     map[string]int{},
	}
}

func (m *fakeMetrics) IncSlotComputation(mode string)    { m.computations[mode]++ }
func (m *fakeMetrics) IncSlotFetchFailure(source string) { m.fetchFailures[source]++ }
func (m *fakeMetrics) IncMalformedBooking(source string) { m.malformed[source]++ }

var testDate = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func stored(id int64, source domain.BookingSource, providerID int64, slot string, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:              id,
		Source:          source,
		ProviderID:      providerID,
		Date:            testDate,
		TimeSlot:        slot,
		DurationMinutes: 30,
		Status:          status,
	}
}

func TestAvailableUnionOfBothSources(t *testing.T) {
	walkIn := &fakeReader{bookings: []*domain.Booking{
		stored(1, domain.SourceWalkIn, 1, "11:00 - 11:30", domain.StatusConfirmed),
	}}
	online := &fakeReader{bookings: []*domain.Booking{
		stored(2, domain.SourceOnlineRequest, 7, "11:00 - 11:30", domain.StatusPaid),
		stored(3, domain.SourceOnlineRequest, 7, "15:00 - 15:30", domain.StatusConfirmed),
	}}
	metrics := newFakeMetrics()

	a := New(walkIn, online, newCatalog(t), DefaultOptions(), metrics, logger.NewNop())

	res, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1})
	require.NoError(t, err)
	assert.False(t, res.Degraded)

	free := labels(res.Slots)
	assert.Len(t, free, 12)
	assert.NotContains(t, free, "11:00 - 11:30")
	// онлайн-заявка другого врача блокирует слот на уровне клиники
	assert.NotContains(t, free, "15:00 - 15:30")

	require.Len(t, walkIn.filters, 1)
	require.NotNil(t, walkIn.filters[0].ProviderID)
	assert.Equal(t, int64(1), *walkIn.filters[0].ProviderID)
	require.Len(t, online.filters, 1)
	assert.Nil(t, online.filters[0].ProviderID)
	assert.Equal(t, domain.BlockingStatuses, online.filters[0].Statuses)
	// подбор слотов только читает, строки не блокируются
	assert.False(t, walkIn.filters[0].ForUpdate)
	assert.False(t, online.filters[0].ForUpdate)

	assert.Equal(t, 1, metrics.computations["single"])
}

func TestAvailableWalkInIsScopedToProvider(t *testing.T) {
	walkIn := &fakeReader{bookings: []*domain.Booking{
		stored(1, domain.SourceWalkIn, 2, "11:00 - 11:30", domain.StatusConfirmed),
	}}
	a := New(walkIn, &fakeReader{}, newCatalog(t), DefaultOptions(), nil, logger.NewNop())

	res, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1, DurationMinutes: 30})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 14)
}

func TestAvailableProviderScopeForOnlineRequests(t *testing.T) {
	online := &fakeReader{bookings: []*domain.Booking{
		stored(2, domain.SourceOnlineRequest, 7, "11:00 - 11:30", domain.StatusConfirmed),
	}}
	opts := Options{FailOpen: true, OnlineScope: ScopeProvider}
	a := New(&fakeReader{}, online, newCatalog(t), opts, nil, logger.NewNop())

	res, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 14)
	require.NotNil(t, online.filters[0].ProviderID)
}

func TestAvailableFailOpen(t *testing.T) {
	walkIn := &fakeReader{err: errors.New("connection refused")}
	online := &fakeReader{bookings: []*domain.Booking{
		stored(2, domain.SourceOnlineRequest, 1, "10:00 - 10:30", domain.StatusConfirmed),
	}}
	metrics := newFakeMetrics()
	a := New(walkIn, online, newCatalog(t), DefaultOptions(), metrics, logger.NewNop())

	res, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Len(t, res.Slots, 13)
	assert.Equal(t, 1, metrics.fetchFailures["walk_in"])
}

func TestAvailableFailClosed(t *testing.T) {
	online := &fakeReader{err: errors.New("permission denied")}
	opts := Options{FailOpen: false, OnlineScope: ScopeClinic}
	a := New(&fakeReader{}, online, newCatalog(t), opts, nil, logger.NewNop())

	_, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1})
	assert.ErrorIs(t, err, ErrBookingsUnavailable)
}

func TestAvailableCountsMalformedBookings(t *testing.T) {
	walkIn := &fakeReader{bookings: []*domain.Booking{
		stored(1, domain.SourceWalkIn, 1, "09:00 - 09:30", domain.StatusConfirmed),
	}}
	metrics := newFakeMetrics()
	a := New(walkIn, &fakeReader{}, newCatalog(t), DefaultOptions(), metrics, logger.NewNop())

	res, err := a.Available(context.Background(), Query{Date: testDate, ProviderID: 1})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 14)
	assert.Equal(t, 1, metrics.malformed["walk_in"])
}

func TestAvailableValidatesQuery(t *testing.T) {
	a := New(&fakeReader{}, &fakeReader{}, newCatalog(t), DefaultOptions(), nil, logger.NewNop())

	_, err := a.Available(context.Background(), Query{ProviderID: 1})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = a.Available(context.Background(), Query{Date: testDate})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestFetchBlockingExcludesBookingAndFailsClosed(t *testing.T) {
	walkIn := &fakeReader{bookings: []*domain.Booking{
		stored(1, domain.SourceWalkIn, 1, "11:00 - 11:30", domain.StatusConfirmed),
		stored(5, domain.SourceWalkIn, 1, "12:00 - 12:30", domain.StatusConfirmed),
	}}
	online := &fakeReader{bookings: []*domain.Booking{
		stored(5, domain.SourceOnlineRequest, 1, "13:00 - 13:30", domain.StatusConfirmed),
	}}
	a := New(walkIn, online, newCatalog(t), DefaultOptions(), nil, logger.NewNop())

	bookings, err := a.FetchBlocking(context.Background(), testDate, 1, walkIn.bookings[1])
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, int64(1), bookings[0].ID)
	assert.Equal(t, domain.SourceOnlineRequest, bookings[1].Source)
	assert.True(t, walkIn.filters[0].ForUpdate)
	assert.True(t, online.filters[0].ForUpdate)

	failing := New(walkIn, &fakeReader{err: errors.New("timeout")}, newCatalog(t), DefaultOptions(), nil, logger.NewNop())
	_, err = failing.FetchBlocking(context.Background(), testDate, 1, nil)
	assert.ErrorIs(t, err, ErrBookingsUnavailable)
}
