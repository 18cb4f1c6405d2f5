package get_provider_bookings

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings/models"
)

// ToServiceRequest формирует запрос сервиса из query параметров date, status, source
func ToServiceRequest(r *http.Request, providerID, userID int64) (*models.GetProviderBookingsRequest, error) {
	date, err := handlers.QueryDate(r, "date")
	if err != nil {
		return nil, err
	}

	return &models.GetProviderBookingsRequest{
		UserID:     userID,
		ProviderID: providerID,
		Date:       date,
		Status:     handlers.QueryString(r, "status"),
		Source:     handlers.QueryString(r, "source"),
	}, nil
}
