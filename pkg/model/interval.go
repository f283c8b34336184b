package model

import (
	"fmt"
	"time"
)

// Interval is a half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps uses half-open semantics, so adjacent intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

type TimeSlot string

const (
	SlotBreakfast TimeSlot = "breakfast"
	SlotLunch     TimeSlot = "lunch"
	SlotDinner    TimeSlot = "dinner"
)

type slotWindow struct {
	startHour, startMin int
	endHour, endMin     int
}

var slotWindows = map[TimeSlot]slotWindow{
	SlotBreakfast: {7, 0, 10, 30},
	SlotLunch:     {12, 0, 15, 30},
	SlotDinner:    {19, 0, 23, 0},
}

func (s TimeSlot) Valid() bool {
	_, ok := slotWindows[s]
	return ok
}

// SlotInterval resolves a restaurant date and service slot into an interval in loc.
func SlotInterval(date string, slot TimeSlot, loc *time.Location) (Interval, error) {
	w, ok := slotWindows[slot]
	if !ok {
		return Interval{}, fmt.Errorf("unknown time slot %q", slot)
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	y, m, d := day.Date()
	return Interval{
		Start: time.Date(y, m, d, w.startHour, w.startMin, 0, 0, loc),
		End:   time.Date(y, m, d, w.endHour, w.endMin, 0, 0, loc),
	}, nil
}
