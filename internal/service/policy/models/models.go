package models

import (
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// Уровни, на которых найдена политика
const (
	LevelProvider = "provider"
	LevelClinic   = "clinic"
	LevelDefault  = "default"
)

// UpsertPolicyRequest запрос на создание или обновление политики
type UpsertPolicyRequest struct {
	UserID                  int64  `json:"-"`
	ProviderID              *int64 `json:"providerId,omitempty"` // NULL = политика клиники
	AdvanceBookingDays      int    `json:"advanceBookingDays"`   // 0 = без ограничений
	MinBookingNoticeMinutes int    `json:"minBookingNoticeMinutes"`
}

// ToDomainPolicy конвертирует запрос в domain модель
func (r *UpsertPolicyRequest) ToDomainPolicy() *domain.BookingPolicy {
	return &domain.BookingPolicy{
		ProviderID:              r.ProviderID,
		AdvanceBookingDays:      r.AdvanceBookingDays,
		MinBookingNoticeMinutes: r.MinBookingNoticeMinutes,
	}
}

// PolicyResponse ответ с действующей политикой
type PolicyResponse struct {
	ID                      int64      `json:"id,omitempty"`
	ProviderID              *int64     `json:"providerId,omitempty"`
	Level                   string     `json:"level"`
	AdvanceBookingDays      int        `json:"advanceBookingDays"`
	MinBookingNoticeMinutes int        `json:"minBookingNoticeMinutes"`
	CreatedAt               *time.Time `json:"createdAt,omitempty"`
	UpdatedAt               *time.Time `json:"updatedAt,omitempty"`
}

// FromDomainPolicy конвертирует domain модель в DTO
func FromDomainPolicy(p *domain.BookingPolicy, level string) *PolicyResponse {
	if p == nil {
		return nil
	}

	resp := &PolicyResponse{
		ID:                      p.ID,
		ProviderID:              p.ProviderID,
		Level:                   level,
		AdvanceBookingDays:      p.AdvanceBookingDays,
		MinBookingNoticeMinutes: p.MinBookingNoticeMinutes,
	}
	if !p.CreatedAt.IsZero() {
		createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
		resp.CreatedAt = &createdAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
