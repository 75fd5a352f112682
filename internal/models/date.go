package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// ErrEndBeforeStart is returned when an interval ends before it starts.
var ErrEndBeforeStart = errors.New("end_date must be on or after start_date")

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts either YYYY-MM-DD or an RFC 3339 timestamp and
// returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return DateOf(t), nil
}

// FormatDate renders a calendar day in DateLayout.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// Interval is a closed range of calendar days [Start, End].
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both bounds to calendar days and rejects
// intervals that end before they start.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: DateOf(start), End: DateOf(end)}
	if iv.End.Before(iv.Start) {
		return Interval{}, ErrEndBeforeStart
	}
	return iv, nil
}

// DayInterval is the zero-width interval covering the calendar day of t.
func DayInterval(t time.Time) Interval {
	d := DateOf(t)
	return Interval{Start: d, End: d}
}

// Overlaps reports whether the intervals share at least one day.
// Touching endpoints overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Start.After(other.End) && !iv.End.Before(other.Start)
}

// Contains reports whether the calendar day of t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return iv.Overlaps(DayInterval(t))
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s]", FormatDate(iv.Start), FormatDate(iv.End))
}
