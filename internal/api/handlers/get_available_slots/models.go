package get_available_slots

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-ClinicBooking/internal/usecase/get_available_slots"
)

var (
	errInvalidServiceID = errors.New("invalid serviceId")
	errInvalidDuration  = errors.New("invalid duration")
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date            string          `json:"date"`
	ProviderID      int64           `json:"providerId"`
	ServiceID       *int64          `json:"serviceId,omitempty"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	Degraded        bool            `json:"degraded"`
	Slots           []AvailableSlot `json:"slots"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	Label     string `json:"label"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			Label:     slot.Label,
			StartTime: slot.StartTime.String(),
			EndTime:   slot.EndTime.String(),
		}
	}

	return &AvailableSlotsResponse{
		Date:            resp.Date.Format(domain.DateFormat),
		ProviderID:      resp.ProviderID,
		ServiceID:       resp.ServiceID,
		DurationMinutes: resp.DurationMinutes,
		Degraded:        resp.Degraded,
		Slots:           slots,
	}
}

// ToUseCaseRequest создает запрос use case из query параметров
func ToUseCaseRequest(providerID int64, dateStr, serviceIDStr, durationStr string) (*getAvailableSlots.Request, error) {
	date, err := time.Parse(domain.DateFormat, dateStr)
	if err != nil {
		return nil, err
	}

	req := &getAvailableSlots.Request{
		ProviderID: providerID,
		Date:       date,
	}

	if serviceIDStr != "" {
		serviceID, err := strconv.ParseInt(serviceIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidServiceID, err)
		}
		req.ServiceID = &serviceID
	}

	if durationStr != "" {
		duration, err := strconv.Atoi(durationStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidDuration, err)
		}
		req.DurationMinutes = &duration
	}

	return req, nil
}
