package get_available_slots

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	getAvailableSlots "github.com/m04kA/SMC-ClinicBooking/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
	"github.com/m04kA/SMC-ClinicBooking/pkg/types"
)

type fakeUseCase struct {
	got  *getAvailableSlots.Request
	resp *getAvailableSlots.Response
	err  error
}

func (f *fakeUseCase) Execute(_ context.Context, req *getAvailableSlots.Request) (*getAvailableSlots.Response, error) {
	f.got = req
	return f.resp, f.err
}

func serve(uc *fakeUseCase, target string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/providers/{providerId}/available-slots", NewHandler(uc, logger.NewNop()).Handle)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandleReturnsSlots(t *testing.T) {
	uc := &fakeUseCase{resp: &getAvailableSlots.Response{
		Date:            time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC),
		ProviderID:      7,
		DurationMinutes: 60,
		Slots: []getAvailableSlots.Slot{
			{Label: "10:00 - 10:30", StartTime: types.TimeString("10:00"), EndTime: types.TimeString("10:30")},
		},
	}}

	w := serve(uc, "/providers/7/available-slots?date=2026-10-21&duration=60")
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, uc.got.DurationMinutes)
	assert.Equal(t, 60, *uc.got.DurationMinutes)
	assert.Nil(t, uc.got.ServiceID)

	var body AvailableSlotsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "2026-10-21", body.Date)
	require.Len(t, body.Slots, 1)
	assert.Equal(t, "10:00 - 10:30", body.Slots[0].Label)
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{name: "bad provider", target: "/providers/abc/available-slots?date=2026-10-21", want: http.StatusBadRequest},
		{name: "missing date", target: "/providers/7/available-slots", want: http.StatusBadRequest},
		{name: "bad date", target: "/providers/7/available-slots?date=21.10.2026", want: http.StatusBadRequest},
		{name: "bad service", target: "/providers/7/available-slots?date=2026-10-21&serviceId=x", want: http.StatusBadRequest},
		{name: "service not found", target: "/providers/7/available-slots?date=2026-10-21&serviceId=9", err: getAvailableSlots.ErrServiceNotFound, want: http.StatusNotFound},
		{name: "past", target: "/providers/7/available-slots?date=2026-10-21", err: getAvailableSlots.ErrInvalidDate, want: http.StatusBadRequest},
		{name: "fail closed", target: "/providers/7/available-slots?date=2026-10-21", err: fmt.Errorf("%w: db", getAvailableSlots.ErrBookingsUnavailable), want: http.StatusServiceUnavailable},
		{name: "internal", target: "/providers/7/available-slots?date=2026-10-21", err: getAvailableSlots.ErrInternal, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(&fakeUseCase{err: tt.err}, tt.target)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
