package domain

// SlotMinutes is the fixed width of one schedule slot
const SlotMinutes = 30

// Default configuration values
const (
	DefaultOpenTime                = "10:00"
	DefaultCloseTime               = "17:00"
	DefaultAdvanceBookingDays      = 0  // 0 = unlimited
	DefaultMinBookingNoticeMinutes = 60 // 1 hour
)

// Business validation constants
const (
	MinAdvanceBookingDays       = 0
	MaxAdvanceBookingDays       = 365 // 1 year
	MinBookingNoticeMinutes     = 0
	MaxBookingNoticeMinutes     = 10080 // 1 week
	MaxServiceDurationMinutes   = 480   // 8 hours
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
