package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-ClinicBooking/pkg/types"
)

// ErrInvalidWorkingHours is returned when the clinic hours cannot form a slot grid
var ErrInvalidWorkingHours = errors.New("invalid clinic working hours")

// TimeSlot is one half-open [Start, End) interval of the schedule grid
type TimeSlot struct {
	Index int
	Start types.TimeString
	End   types.TimeString
}

// Label returns the display form used as the booking "time" value, e.g. "11:00 - 11:30"
func (s TimeSlot) Label() string {
	return fmt.Sprintf("%s - %s", s.Start, s.End)
}

// SlotCatalog is the ordered, static list of slots for a working day.
// It is built once at startup and shared read-only.
type SlotCatalog struct {
	slots   []TimeSlot
	byLabel map[string]int
	byStart map[types.TimeString]int
}

// NewSlotCatalog builds SlotMinutes-wide slots from open until close.
// A trailing interval shorter than SlotMinutes is dropped.
func NewSlotCatalog(open, close types.TimeString) (*SlotCatalog, error) {
	if err := open.Validate(); err != nil {
		return nil, fmt.Errorf("%w: open time: %v", ErrInvalidWorkingHours, err)
	}
	if err := close.Validate(); err != nil {
		return nil, fmt.Errorf("%w: close time: %v", ErrInvalidWorkingHours, err)
	}
	if !open.IsBefore(close) {
		return nil, fmt.Errorf("%w: open %s is not before close %s", ErrInvalidWorkingHours, open, close)
	}

	c := &SlotCatalog{
		slots:   make([]TimeSlot, 0),
		byLabel: make(map[string]int),
		byStart: make(map[types.TimeString]int),
	}

	current := open
	for {
		end, err := current.AddMinutes(SlotMinutes)
		if err != nil || end.IsAfter(close) {
			break
		}

		slot := TimeSlot{Index: len(c.slots), Start: current, End: end}
		c.slots = append(c.slots, slot)
		c.byLabel[slot.Label()] = slot.Index
		c.byStart[slot.Start] = slot.Index

		if !end.IsBefore(close) {
			break
		}
		current = end
	}

	if len(c.slots) == 0 {
		return nil, fmt.Errorf("%w: no %d-minute slot fits between %s and %s", ErrInvalidWorkingHours, SlotMinutes, open, close)
	}

	return c, nil
}

// Len returns the number of slots in the catalog
func (c *SlotCatalog) Len() int {
	return len(c.slots)
}

// At returns the slot at index i
func (c *SlotCatalog) At(i int) TimeSlot {
	return c.slots[i]
}

// Slots returns a copy of the catalog in order
func (c *SlotCatalog) Slots() []TimeSlot {
	out := make([]TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

// IndexOf resolves a booking time value to a slot index.
// Accepts the full label ("11:00 - 11:30", spacing around the dash is free)
// or a bare start time ("11:00"). Returns -1 when the value is not part of the catalog.
func (c *SlotCatalog) IndexOf(value string) int {
	value = strings.TrimSpace(value)
	if start, end, ok := strings.Cut(value, "-"); ok {
		value = strings.TrimSpace(start) + " - " + strings.TrimSpace(end)
	}
	if i, ok := c.byLabel[value]; ok {
		return i
	}
	if i, ok := c.byStart[types.TimeString(value)]; ok {
		return i
	}
	return -1
}

// Labels returns slot labels in catalog order
func (c *SlotCatalog) Labels() []string {
	labels := make([]string, len(c.slots))
	for i, s := range c.slots {
		labels[i] = s.Label()
	}
	return labels
}

// SlotsNeeded returns how many consecutive slots a duration occupies.
// Durations of zero or less count as one slot.
func SlotsNeeded(durationMinutes int) int {
	if durationMinutes <= 0 {
		durationMinutes = SlotMinutes
	}
	return (durationMinutes + SlotMinutes - 1) / SlotMinutes
}
