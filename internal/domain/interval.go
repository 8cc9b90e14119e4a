package domain

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("end_time must be after start_time")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval from explicit bounds, normalized to UTC.
func NewInterval(start, end time.Time) (Interval, error) {
	start = start.UTC()
	end = end.UTC()
	if end.Equal(start) || end.Before(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// IntervalFromDuration builds an interval for callers that carry a start time
// and a slot duration instead of an explicit end time.
func IntervalFromDuration(start time.Time, d time.Duration) (Interval, error) {
	return NewInterval(start, start.Add(d))
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching intervals (a.End == b.Start) are adjacent, not overlapping.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Equal reports whether both bounds match to the instant.
func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
