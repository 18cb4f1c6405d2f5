package bookings

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = errors.New("access denied")

	// ErrCannotCancel возвращается, когда бронирование не может быть отменено
	ErrCannotCancel = errors.New("booking cannot be cancelled")

	// ErrInvalidTransition возвращается при недопустимой смене статуса
	ErrInvalidTransition = errors.New("booking status transition is not allowed")

	// ErrSlotNotAvailable возвращается, когда слот бронирования занят другим бронированием
	ErrSlotNotAvailable = errors.New("slot is not available")

	// ErrInvalidTimeSlot возвращается, когда слота нет в каталоге
	ErrInvalidTimeSlot = errors.New("invalid time slot")

	// ErrInvalidBookingDate возвращается при некорректной дате бронирования
	ErrInvalidBookingDate = errors.New("invalid booking date")

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение advanceBookingDays
	ErrDateTooFarInFuture = errors.New("date is too far in the future")

	// ErrClinicClosed возвращается, когда клиника не работает в указанную дату
	ErrClinicClosed = errors.New("clinic is closed on this date")

	// ErrTooLate возвращается, когда до начала слота меньше minBookingNoticeMinutes
	ErrTooLate = errors.New("too late to book this slot")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
