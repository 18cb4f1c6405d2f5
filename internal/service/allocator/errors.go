package allocator

import "errors"

var (
	// ErrBookingsUnavailable возвращается, когда чтение бронирований не удалось
	// и политика fail-open выключена
	ErrBookingsUnavailable = errors.New("allocator: bookings unavailable")

	// ErrInvalidQuery возвращается при некорректном запросе
	ErrInvalidQuery = errors.New("allocator: invalid query")
)
