package schedule

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// Calendar рабочий календарь клиники: часовой пояс и рабочие дни недели.
// Даты бронирований хранятся как полночь UTC; сравнение идёт по календарной дате в часовом поясе клиники.
type Calendar struct {
	loc         *time.Location
	workingDays map[time.Weekday]bool
}

// NewCalendar создает календарь. Пустой workingDays означает, что клиника работает каждый день.
func NewCalendar(loc *time.Location, workingDays map[time.Weekday]bool) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, workingDays: workingDays}
}

// IsOpen сообщает, работает ли клиника в эту дату
func (c *Calendar) IsOpen(date time.Time) bool {
	if len(c.workingDays) == 0 {
		return true
	}
	return c.workingDays[date.Weekday()]
}

// Today текущая дата клиники (полночь UTC)
func (c *Calendar) Today(now time.Time) time.Time {
	local := now.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateDate проверяет, что на дату можно записаться по политике
func (c *Calendar) ValidateDate(date, now time.Time, policy *domain.BookingPolicy) error {
	today := c.Today(now)
	day := dateOnly(date)

	if day.Before(today) {
		return ErrDateInPast
	}

	if policy != nil && policy.HasAdvanceBookingLimit() {
		maxDate := today.AddDate(0, 0, policy.AdvanceBookingDays)
		if day.After(maxDate) {
			return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, policy.AdvanceBookingDays)
		}
	}

	return nil
}

// SlotStart момент начала слота в часовом поясе клиники
func (c *Calendar) SlotStart(date time.Time, slot domain.TimeSlot) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc).
		Add(time.Duration(slot.Start.Minutes()) * time.Minute)
}

// MeetsNotice сообщает, что до начала слота не меньше noticeMinutes
func (c *Calendar) MeetsNotice(date time.Time, slot domain.TimeSlot, now time.Time, noticeMinutes int) bool {
	earliest := now.Add(time.Duration(noticeMinutes) * time.Minute)
	return !c.SlotStart(date, slot).Before(earliest)
}

// FilterByNotice оставляет слоты, до начала которых не меньше noticeMinutes
func (c *Calendar) FilterByNotice(date time.Time, slots []domain.TimeSlot, now time.Time, noticeMinutes int) []domain.TimeSlot {
	result := make([]domain.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if c.MeetsNotice(date, slot, now, noticeMinutes) {
			result = append(result, slot)
		}
	}
	return result
}

// CheckSlot проверяет дату, рабочий день и минимальное время до начала слота
func (c *Calendar) CheckSlot(date time.Time, slot domain.TimeSlot, now time.Time, policy *domain.BookingPolicy) error {
	if err := c.ValidateDate(date, now, policy); err != nil {
		return err
	}
	if !c.IsOpen(date) {
		return ErrClinicClosed
	}
	if policy != nil && !c.MeetsNotice(date, slot, now, policy.MinBookingNoticeMinutes) {
		return fmt.Errorf("%w: at least %d minutes notice required", ErrTooLate, policy.MinBookingNoticeMinutes)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
