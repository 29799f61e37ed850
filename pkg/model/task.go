package model

import "time"

// UntitledTask is used when a task has no usable title.
const UntitledTask = "(Untitled)"

// Task is a normalized row from the task store.
type Task struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Due  *time.Time `json:"due"`
	// DueRaw keeps the store's original date string (date-only or datetime).
	DueRaw string  `json:"-"`
	Area   *string `json:"area"`
	Done   bool    `json:"done"`
	URL    string  `json:"url,omitempty"`
}

// AreaLabel returns the area or an empty string when none was resolved.
func (t Task) AreaLabel() string {
	if t.Area == nil {
		return ""
	}
	return *t.Area
}

// Buckets groups tasks by due window.
type Buckets struct {
	Today    []Task `json:"today"`
	Overdue  []Task `json:"overdue"`
	Upcoming []Task `json:"upcoming"`
}

// Empty reports whether no bucket has any task. Callers treat empty buckets as
// "unavailable", not "nothing due".
func (b Buckets) Empty() bool {
	return len(b.Today) == 0 && len(b.Overdue) == 0 && len(b.Upcoming) == 0
}

// CalendarEvent is one event on today's agenda.
type CalendarEvent struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	MeetingLink string
}

// Email is the representative message of one inbox thread.
type Email struct {
	ID           string
	ThreadID     string
	FromName     string
	FromEmail    string
	Subject      string
	Snippet      string
	Date         string
	InternalDate int64
}

// Sender returns the best display name for the sender.
func (e Email) Sender() string {
	switch {
	case e.FromName != "":
		return e.FromName
	case e.FromEmail != "":
		return e.FromEmail
	default:
		return "Unknown"
	}
}
