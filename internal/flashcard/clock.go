package flashcard

import (
	"strings"
	"time"
)

// Clock supplies the current instant. Scheduling only looks at its calendar
// day in the clock's own location.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the device clock in local time.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always reports t. Tests use it to pin "today".
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Today returns midnight of the clock's current day.
func Today(c Clock) time.Time {
	if c == nil {
		c = SystemClock
	}
	return DateOf(c.Now())
}

// DateOf drops the time of day, keeping t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays is calendar arithmetic, so DST shifts never move the day.
func AddDays(day time.Time, n int) time.Time {
	return DateOf(day).AddDate(0, 0, n)
}

// CompareDays orders a and b by calendar date only.
func CompareDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return cmpInt(ay, by)
	case am != bm:
		return cmpInt(int(am), int(bm))
	default:
		return cmpInt(ad, bd)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ParseDate reads YYYY-MM-DD or a full RFC 3339 timestamp (older exports
// stored ISO strings) and returns the calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}
