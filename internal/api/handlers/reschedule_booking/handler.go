package reschedule_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ClinicBooking/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicBooking/internal/api/middleware"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/bookings"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgInvalidSource      = "некорректный источник бронирования, ожидается walk_in или online_request"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgNotFound           = "бронирование не найдено"
	msgForbidden          = "доступ запрещен"
	msgCannotReschedule   = "бронирование не может быть перенесено"
	msgSlotNotAvailable   = "выбранный временной слот недоступен"
	msgInvalidTimeSlot    = "некорректный временной слот"
	msgInvalidBookingDate = "некорректная дата бронирования"
	msgDateTooFar         = "дата бронирования слишком далеко в будущем"
	msgClinicClosed       = "клиника не работает в выбранную дату"
	msgTooLate            = "слишком поздно для бронирования этого слота"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{source}/{bookingId}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	source, err := handlers.PathSource(r)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Invalid source: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSource)
		return
	}

	bookingID, err := handlers.PathID(r, "bookingId")
	if err != nil {
		h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req RescheduleBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	serviceReq, err := req.ToServiceRequest(userID)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Invalid date: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	booking, err := h.service.Reschedule(r.Context(), source, bookingID, serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Booking not found: source=%s, booking_id=%d", source, bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, bookings.ErrAccessDenied):
			h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Access denied: booking_id=%d, user_id=%d", bookingID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, bookings.ErrSlotNotAvailable):
			h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Slot taken: date=%s, slot=%q", req.BookingDate, req.TimeSlot)
			handlers.RespondConflict(w, msgSlotNotAvailable)

		case errors.Is(err, bookings.ErrInvalidTransition):
			h.logger.Warn("PATCH /bookings/{source}/{id}/reschedule - Cannot reschedule: %v", err)
			handlers.RespondConflict(w, msgCannotReschedule)

		case errors.Is(err, bookings.ErrInvalidTimeSlot):
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		case errors.Is(err, bookings.ErrInvalidBookingDate):
			handlers.RespondBadRequest(w, msgInvalidBookingDate)

		case errors.Is(err, bookings.ErrDateTooFarInFuture):
			handlers.RespondBadRequest(w, msgDateTooFar)

		case errors.Is(err, bookings.ErrClinicClosed):
			handlers.RespondBadRequest(w, msgClinicClosed)

		case errors.Is(err, bookings.ErrTooLate):
			handlers.RespondBadRequest(w, msgTooLate)

		default:
			h.logger.Error("PATCH /bookings/{source}/{id}/reschedule - Failed to reschedule: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{source}/{id}/reschedule - Booking moved: source=%s, booking_id=%d, date=%s, slot=%s",
		source, bookingID, booking.BookingDate, booking.TimeSlot)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
