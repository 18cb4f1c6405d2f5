package domain

import "time"

// BookingPolicy represents booking limits for a provider.
// ProviderID == nil is the clinic-wide policy used when a provider has no override.
type BookingPolicy struct {
	ID                      int64
	ProviderID              *int64
	AdvanceBookingDays      int // 0 = unlimited
	MinBookingNoticeMinutes int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DefaultBookingPolicy returns the policy applied when nothing is stored
func DefaultBookingPolicy() *BookingPolicy {
	return &BookingPolicy{
		AdvanceBookingDays:      DefaultAdvanceBookingDays,
		MinBookingNoticeMinutes: DefaultMinBookingNoticeMinutes,
	}
}

// IsClinicWide returns true if this is the clinic-wide policy
func (p *BookingPolicy) IsClinicWide() bool {
	return p.ProviderID == nil
}

// HasAdvanceBookingLimit returns true if there's a limit on how far in advance bookings can be made
func (p *BookingPolicy) HasAdvanceBookingLimit() bool {
	return p.AdvanceBookingDays > 0
}
