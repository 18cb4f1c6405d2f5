package list_services

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// ServiceCatalog каталог услуг клиники
type ServiceCatalog interface {
	All() []domain.ServiceOption
}

// ServiceResponse услуга прайс-листа
type ServiceResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

// ListResponse HTTP response model
type ListResponse struct {
	Services []ServiceResponse `json:"services"`
}

type Handler struct {
	catalog ServiceCatalog
}

func NewHandler(catalog ServiceCatalog) *Handler {
	return &Handler{catalog: catalog}
}

// Handle GET /api/v1/services
func (h *Handler) Handle(w http.ResponseWriter, _ *http.Request) {
	options := h.catalog.All()

	resp := ListResponse{Services: make([]ServiceResponse, len(options))}
	for i, o := range options {
		resp.Services[i] = ServiceResponse{
			ID:              o.ID,
			Name:            o.Name,
			Price:           o.Price,
			DurationMinutes: o.DurationMinutes,
		}
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}
