package overdue

import (
	"fmt"
	"time"
)

// Bucket is one of the due-date groupings of the brief.
type Bucket int

const (
	Outside Bucket = iota
	Overdue
	Today
	Upcoming
)

func (b Bucket) String() string {
	switch b {
	case Overdue:
		return "overdue"
	case Today:
		return "today"
	case Upcoming:
		return "upcoming"
	default:
		return "outside"
	}
}

// Window holds the bounds shared by the three task queries.
//
//	overdue:  due <  Start
//	today:    Start <= due <= End
//	upcoming: End < due < Horizon
type Window struct {
	Start    time.Time
	End      time.Time
	Horizon  time.Time
	StartISO string
	EndISO   string
}

// NewWindow parses the ISO-8601 window bounds and derives the upcoming horizon
// as now + lookaheadDays.
func NewWindow(startISO, endISO string, now time.Time, lookaheadDays int) (Window, error) {
	start, err := time.Parse(time.RFC3339, startISO)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start '%s': %w", startISO, err)
	}
	end, err := time.Parse(time.RFC3339, endISO)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window end '%s': %w", endISO, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("window end %s is before start %s", endISO, startISO)
	}
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	return Window{
		Start:    start,
		End:      end,
		Horizon:  now.AddDate(0, 0, lookaheadDays),
		StartISO: startISO,
		EndISO:   endISO,
	}, nil
}

// HorizonISO formats the upcoming horizon in the window's own offset.
func (w Window) HorizonISO() string {
	return w.Horizon.In(w.Start.Location()).Format(time.RFC3339)
}

// Classify returns the bucket a due time falls into.
func (w Window) Classify(due time.Time) Bucket {
	switch {
	case due.Before(w.Start):
		return Overdue
	case !due.After(w.End):
		return Today
	case due.Before(w.Horizon):
		return Upcoming
	default:
		return Outside
	}
}

// Contains reports whether due is inside bucket b's bounds.
func (w Window) Contains(b Bucket, due time.Time) bool {
	return w.Classify(due) == b
}
