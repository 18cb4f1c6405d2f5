package create_booking

import "errors"

var (
	// ErrServiceNotFound возвращается, когда услуги нет в каталоге
	ErrServiceNotFound = errors.New("create_booking: service not found")

	// ErrProviderNotFound возвращается, когда врач не найден или пользователь не является врачом
	ErrProviderNotFound = errors.New("create_booking: provider not found")

	// ErrPatientNotFound возвращается, когда пациент не найден
	ErrPatientNotFound = errors.New("create_booking: patient not found")

	// ErrAccessDenied возвращается, когда пользователь не может создать такое бронирование
	ErrAccessDenied = errors.New("create_booking: access denied")

	// ErrInvalidDate возвращается при некорректной дате бронирования
	ErrInvalidDate = errors.New("create_booking: invalid booking date")

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение advanceBookingDays
	ErrDateTooFarInFuture = errors.New("create_booking: date is too far in the future")

	// ErrClinicClosed возвращается, когда клиника не работает в указанную дату
	ErrClinicClosed = errors.New("create_booking: clinic is closed on this date")

	// ErrSlotNotAvailable возвращается, когда выбранный слот (или один из нужных подряд) занят
	ErrSlotNotAvailable = errors.New("create_booking: slot is not available")

	// ErrSlotBusy возвращается, когда расписание врача на дату сейчас изменяется другим запросом
	ErrSlotBusy = errors.New("create_booking: schedule is being modified, try again")

	// ErrInvalidTimeSlot возвращается, когда слота нет в каталоге
	ErrInvalidTimeSlot = errors.New("create_booking: invalid time slot")

	// ErrTooLateToBook возвращается, когда попытка забронировать слот нарушает minBookingNoticeMinutes
	ErrTooLateToBook = errors.New("create_booking: too late to book this slot")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
