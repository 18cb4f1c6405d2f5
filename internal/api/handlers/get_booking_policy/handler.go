package get_booking_policy

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
)

const msgInvalidProviderID = "некорректный ID врача"

type Handler struct {
	service PolicyService
	logger  Logger
}

func NewHandler(service PolicyService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/providers/{providerId}/policy
// Возвращает действующую политику: врача, клиники или значения по умолчанию
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	providerID, err := handlers.PathID(r, "providerId")
	if err != nil {
		h.logger.Warn("GET /providers/{id}/policy - Invalid provider ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	policy, err := h.service.GetForProvider(r.Context(), providerID)
	if err != nil {
		h.logger.Error("GET /providers/{id}/policy - Failed to get policy: provider_id=%d, error=%v", providerID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /providers/{id}/policy - Policy retrieved: provider_id=%d, level=%s", providerID, policy.Level)
	handlers.RespondJSON(w, http.StatusOK, policy)
}
