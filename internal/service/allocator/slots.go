package allocator

import (
	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// BlockedIndices возвращает индексы слотов каталога, занятые блокирующими бронированиями.
// Бронирования со временем вне каталога не роняют расчёт, а возвращаются в malformed.
func BlockedIndices(catalog *domain.SlotCatalog, bookings []*domain.Booking) (blocked map[int]struct{}, malformed []*domain.Booking) {
	blocked = make(map[int]struct{})

	for _, booking := range bookings {
		if booking == nil || !booking.Blocks() {
			continue
		}

		start := catalog.IndexOf(booking.TimeSlot)
		if start < 0 {
			malformed = append(malformed, booking)
			continue
		}

		end := start + booking.SlotSpan()
		if end > catalog.Len() {
			end = catalog.Len()
		}
		for i := start; i < end; i++ {
			blocked[i] = struct{}{}
		}
	}

	return blocked, malformed
}

// FreeSlots возвращает слоты, с которых можно начать новое бронирование, в порядке каталога.
// durationMinutes <= 0 означает, что длительность не задана: возвращаются все свободные
// слоты без проверки непрерывности. Иначе слот подходит, только если все
// ceil(duration/30) слотов подряд свободны и помещаются в каталог.
func FreeSlots(catalog *domain.SlotCatalog, bookings []*domain.Booking, durationMinutes int) []domain.TimeSlot {
	blocked, _ := BlockedIndices(catalog, bookings)
	return freeFromBlocked(catalog, blocked, durationMinutes)
}

// IsFree сообщает, можно ли начать бронирование длительностью durationMinutes со слота startIndex
func IsFree(catalog *domain.SlotCatalog, bookings []*domain.Booking, startIndex int, durationMinutes int) bool {
	if startIndex < 0 || startIndex >= catalog.Len() {
		return false
	}
	blocked, _ := BlockedIndices(catalog, bookings)
	return rangeFree(catalog, blocked, startIndex, domain.SlotsNeeded(durationMinutes))
}

func freeFromBlocked(catalog *domain.SlotCatalog, blocked map[int]struct{}, durationMinutes int) []domain.TimeSlot {
	free := make([]domain.TimeSlot, 0, catalog.Len())

	if durationMinutes <= 0 {
		for i := 0; i < catalog.Len(); i++ {
			if _, taken := blocked[i]; !taken {
				free = append(free, catalog.At(i))
			}
		}
		return free
	}

	needed := domain.SlotsNeeded(durationMinutes)
	for i := 0; i < catalog.Len(); i++ {
		if rangeFree(catalog, blocked, i, needed) {
			free = append(free, catalog.At(i))
		}
	}
	return free
}

func rangeFree(catalog *domain.SlotCatalog, blocked map[int]struct{}, start, needed int) bool {
	if start+needed > catalog.Len() {
		return false
	}
	for i := start; i < start+needed; i++ {
		if _, taken := blocked[i]; taken {
			return false
		}
	}
	return true
}
