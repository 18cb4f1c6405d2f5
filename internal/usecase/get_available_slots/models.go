package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/pkg/types"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ProviderID      int64     // ID врача
	Date            time.Time // Дата (без времени)
	ServiceID       *int64    // Услуга: длительность берётся из каталога
	DurationMinutes *int      // Явная длительность, приоритетнее услуги
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date            time.Time
	ProviderID      int64
	ServiceID       *int64
	DurationMinutes int  // 0 - длительность не задана
	Degraded        bool // часть бронирований не прочитана, список может быть неполным
	Slots           []Slot
}

// Slot модель временного слота
type Slot struct {
	Label     string           // "11:00 - 11:30"
	StartTime types.TimeString // "11:00"
	EndTime   types.TimeString // "11:30"
}
