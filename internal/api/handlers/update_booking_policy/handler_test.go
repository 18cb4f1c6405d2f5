package update_booking_policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/middleware"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/policy"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/policy/models"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
)

type fakeService struct {
	got *models.UpsertPolicyRequest
	err error
}

func (f *fakeService) Upsert(_ context.Context, req *models.UpsertPolicyRequest) (*models.PolicyResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PolicyResponse{ID: 1, Level: models.LevelClinic}, nil
}

func do(svc *fakeService, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPut, "/api/v1/policies", strings.NewReader(body))
	r = r.WithContext(middleware.WithUserID(r.Context(), 1))
	w := httptest.NewRecorder()
	NewHandler(svc, logger.NewNop()).Handle(w, r)
	return w
}

func TestHandle(t *testing.T) {
	svc := &fakeService{}
	w := do(svc, `{"advanceBookingDays":30,"minBookingNoticeMinutes":120}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), svc.got.UserID)
	assert.Nil(t, svc.got.ProviderID)
	assert.Equal(t, 120, svc.got.MinBookingNoticeMinutes)

	assert.Equal(t, http.StatusForbidden, do(&fakeService{err: policy.ErrAccessDenied}, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(&fakeService{err: policy.ErrInvalidInput}, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(&fakeService{}, `{"userId":5}`).Code)
}
