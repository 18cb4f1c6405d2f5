package get_available_slots

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
	getAvailableSlots "github.com/m04kA/SMC-ClinicBooking/internal/usecase/get_available_slots"
)

const (
	msgInvalidProviderID   = "некорректный ID врача"
	msgInvalidServiceID    = "некорректный ID услуги"
	msgInvalidDuration     = "некорректная длительность, ожидается число минут"
	msgMissingDate         = "дата обязательна"
	msgInvalidDate         = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgServiceNotFound     = "услуга не найдена"
	msgDateInPast          = "дата в прошлом"
	msgDateTooFar          = "дата слишком далеко в будущем"
	msgBookingsUnavailable = "расписание временно недоступно, попробуйте позже"
)

type Handler struct {
	useCase GetAvailableSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/providers/{providerId}/available-slots
// Query params: date (required, YYYY-MM-DD), serviceId или duration (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	providerID, err := handlers.PathID(r, "providerId")
	if err != nil {
		h.logger.Warn("GET /providers/{id}/available-slots - Invalid provider ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	query := r.URL.Query()
	if query.Get("date") == "" {
		h.logger.Warn("GET /providers/{id}/available-slots - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	// Формируем запрос к use case (с парсингом параметров)
	useCaseReq, err := ToUseCaseRequest(providerID, query.Get("date"), query.Get("serviceId"), query.Get("duration"))
	if err != nil {
		h.logger.Warn("GET /providers/{id}/available-slots - Invalid parameters: %v", err)
		switch {
		case errors.Is(err, errInvalidServiceID):
			handlers.RespondBadRequest(w, msgInvalidServiceID)
		case errors.Is(err, errInvalidDuration):
			handlers.RespondBadRequest(w, msgInvalidDuration)
		default:
			handlers.RespondBadRequest(w, msgInvalidDate)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getAvailableSlots.ErrServiceNotFound):
			h.logger.Warn("GET /providers/{id}/available-slots - Service not found: provider_id=%d", providerID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getAvailableSlots.ErrInvalidDate):
			h.logger.Warn("GET /providers/{id}/available-slots - Date in past: provider_id=%d", providerID)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, getAvailableSlots.ErrDateTooFarInFuture):
			h.logger.Warn("GET /providers/{id}/available-slots - Date too far: provider_id=%d", providerID)
			handlers.RespondBadRequest(w, msgDateTooFar)

		case errors.Is(err, getAvailableSlots.ErrInvalidInput):
			h.logger.Warn("GET /providers/{id}/available-slots - Invalid input: %v", err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, getAvailableSlots.ErrBookingsUnavailable):
			h.logger.Error("GET /providers/{id}/available-slots - Bookings unavailable: provider_id=%d, error=%v", providerID, err)
			handlers.RespondServiceUnavailable(w, msgBookingsUnavailable)

		default:
			h.logger.Error("GET /providers/{id}/available-slots - Failed to get slots: provider_id=%d, error=%v", providerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /providers/{id}/available-slots - Slots retrieved successfully: provider_id=%d, slots_count=%d, degraded=%t",
		providerID, len(result.Slots), result.Degraded)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
