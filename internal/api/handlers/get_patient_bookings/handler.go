package get_patient_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicBooking/internal/api/middleware"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings/models"
)

const (
	msgInvalidPatientID = "некорректный ID пациента"
	msgMissingUserID    = "отсутствует ID пользователя"
	msgInvalidStatus    = "некорректный статус"
	msgForbidden        = "доступ запрещен"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/patients/{patientId}/bookings
// Query params: status (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	patientID, err := handlers.PathID(r, "patientId")
	if err != nil {
		h.logger.Warn("GET /patients/{id}/bookings - Invalid patient ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPatientID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /patients/{id}/bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	result, err := h.service.GetPatientBookings(r.Context(), &models.GetPatientBookingsRequest{
		UserID:    userID,
		PatientID: patientID,
		Status:    handlers.QueryString(r, "status"),
	})
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrAccessDenied):
			h.logger.Warn("GET /patients/{id}/bookings - Access denied: patient_id=%d, user_id=%d", patientID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /patients/{id}/bookings - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		default:
			h.logger.Error("GET /patients/{id}/bookings - Failed to get bookings: patient_id=%d, error=%v", patientID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /patients/{id}/bookings - Bookings retrieved successfully: patient_id=%d, count=%d",
		patientID, len(result.Bookings))
	handlers.RespondJSON(w, http.StatusOK, result)
}
