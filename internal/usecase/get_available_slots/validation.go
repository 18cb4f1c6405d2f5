package get_available_slots

import (
	"fmt"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ProviderID <= 0 {
		return fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.ServiceID != nil && *req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.DurationMinutes != nil {
		d := *req.DurationMinutes
		if d <= 0 || d > domain.MaxServiceDurationMinutes {
			return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidInput, domain.MaxServiceDurationMinutes)
		}
	}

	return nil
}
