package get_booking_policy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/service/policy/models"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
)

type fakeService struct {
	got int64
	err error
}

func (f *fakeService) GetForProvider(_ context.Context, providerID int64) (*models.PolicyResponse, error) {
	f.got = providerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.PolicyResponse{
		ProviderID:              &providerID,
		Level:                   models.LevelProvider,
		AdvanceBookingDays:      14,
		MinBookingNoticeMinutes: 120,
	}, nil
}

func do(svc *fakeService, providerID string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/providers/"+providerID+"/policy", nil)
	r = mux.SetURLVars(r, map[string]string{"providerId": providerID})
	w := httptest.NewRecorder()
	NewHandler(svc, logger.NewNop()).Handle(w, r)
	return w
}

func TestHandle(t *testing.T) {
	svc := &fakeService{}
	w := do(svc, "7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), svc.got)

	var resp models.PolicyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.LevelProvider, resp.Level)
	assert.Equal(t, 14, resp.AdvanceBookingDays)
	assert.Equal(t, 120, resp.MinBookingNoticeMinutes)
}

func TestHandle_Errors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, do(&fakeService{}, "abc").Code)
	assert.Equal(t, http.StatusBadRequest, do(&fakeService{}, "0").Code)
	assert.Equal(t, http.StatusInternalServerError, do(&fakeService{err: errors.New("db down")}, "7").Code)
}
