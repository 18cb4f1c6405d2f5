package list_services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

func TestHandleListsCatalog(t *testing.T) {
	catalog, err := domain.NewServiceCatalog([]domain.ServiceOption{
		{ID: 1, Name: "Консультация", Price: 1500, DurationMinutes: 30},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	NewHandler(catalog).Handle(w, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"services":[{"id":1,"name":"Консультация","price":1500,"durationMinutes":30}]}`, w.Body.String())
}
