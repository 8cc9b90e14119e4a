package schedule

import (
	"iter"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

const (
	DefaultStartHour    = 9
	DefaultEndHour      = 17
	DefaultSlotDuration = 30 * time.Minute
)

// WorkingHours bounds the bookable portion of a provider's day. Hours are in
// the engine's reference timezone (UTC).
type WorkingHours struct {
	StartHour    int
	EndHour      int
	SlotDuration time.Duration
}

func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		StartHour:    DefaultStartHour,
		EndHour:      DefaultEndHour,
		SlotDuration: DefaultSlotDuration,
	}
}

func (wh WorkingHours) Valid() bool {
	return wh.SlotDuration > 0 &&
		wh.StartHour >= 0 && wh.EndHour <= 24 &&
		wh.StartHour < wh.EndHour
}

// Slots yields the ascending bookable start times for the calendar days from
// rangeStart to rangeEnd inclusive. Saturdays and Sundays are skipped. Each
// candidate occupies [start, start+SlotDuration); only whole slots that fit
// before EndHour are offered, and any candidate overlapping a blocking
// appointment in booked is dropped.
//
// The sequence is lazy and restartable: it closes over the already-fetched
// appointment set and performs no I/O, so callers may consume a prefix or
// range over it more than once.
func Slots(rangeStart, rangeEnd time.Time, wh WorkingHours, booked []domain.Appointment) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		// The range is compared at instant precision: an inverted range is
		// empty even when both bounds fall on the same calendar day.
		if !wh.Valid() || rangeStart.After(rangeEnd) {
			return
		}

		day := dateOf(rangeStart.UTC())
		last := dateOf(rangeEnd.UTC())

		for !day.After(last) {
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				day = day.AddDate(0, 0, 1)
				continue
			}

			dayStart := day.Add(time.Duration(wh.StartHour) * time.Hour)
			dayEnd := day.Add(time.Duration(wh.EndHour) * time.Hour)

			for start := dayStart; !start.Add(wh.SlotDuration).After(dayEnd); start = start.Add(wh.SlotDuration) {
				candidate := domain.Interval{Start: start, End: start.Add(wh.SlotDuration)}
				if HasConflict(booked, candidate, uuid.Nil) {
					continue
				}
				if !yield(start) {
					return
				}
			}

			day = day.AddDate(0, 0, 1)
		}
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
