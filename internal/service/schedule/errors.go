package schedule

import "errors"

var (
	// ErrDateInPast возвращается для даты раньше сегодняшней
	ErrDateInPast = errors.New("schedule: date is in the past")

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение advanceBookingDays
	ErrDateTooFarInFuture = errors.New("schedule: date is too far in the future")

	// ErrClinicClosed возвращается, когда клиника не работает в этот день
	ErrClinicClosed = errors.New("schedule: clinic is closed on this date")

	// ErrTooLate возвращается, когда до начала слота осталось меньше минимального времени
	ErrTooLate = errors.New("schedule: slot starts too soon")
)
