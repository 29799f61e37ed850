package util

import (
	"time"
)

// DayRange returns the first and last second of the calendar day containing
// now, in loc, formatted as RFC 3339.
func DayRange(now time.Time, loc *time.Location) (string, string) {
	start, end := DayBounds(now, loc)
	return start.Format(time.RFC3339), end.Format(time.RFC3339)
}

// DayBounds returns local midnight and 23:59:59 of the day containing now.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	// AddDate keeps DST days at their real length.
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start, end
}

// DayHeader formats a day like "Mon 3 Nov".
func DayHeader(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon 2 Jan")
}

// PrettyTime formats a clock time as HH:MM in loc.
func PrettyTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// Weekday returns the full weekday name of t in loc.
func Weekday(t time.Time, loc *time.Location) string {
	return t.In(loc).Weekday().String()
}
