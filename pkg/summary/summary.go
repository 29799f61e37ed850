// Package summary renders the plain-text morning brief.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/morningbrief/pkg/model"
	"github.com/harrisonrobin/morningbrief/pkg/util"
)

const (
	TodayTitle = "🗓️ Today"
	TasksTitle = "🧰 Tasks Today"
	InboxTitle = "📥 Inbox Today"

	MaxTasks  = 5
	MaxEmails = 3

	backToBack = " (back-to-back — plan travel buffer)"
	allDay     = "All day"
)

// Input is everything the summary shows.
type Input struct {
	Name     string
	Now      time.Time
	Location *time.Location
	Events   []model.CalendarEvent
	Tasks    []model.Task
	Emails   []model.Email
}

// Make renders the header and the three sections separated by blank lines.
func Make(in Input) string {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	name := in.Name
	if name == "" {
		name = "there"
	}

	header := fmt.Sprintf("Good morning, %s — %s", name, util.DayHeader(in.Now, loc))
	parts := []string{
		header,
		util.Section(TodayTitle, EventLines(in.Events, loc)),
		util.Section(TasksTitle, TaskLines(in.Tasks, MaxTasks)),
		util.Section(InboxTitle, EmailLines(in.Emails, MaxEmails)),
	}
	return strings.Join(parts, "\n\n")
}

// EventLines renders "HH:MM → Title → where" per event, ordered by start. A
// timed event starting when the previous one ends gets a back-to-back hint.
func EventLines(events []model.CalendarEvent, loc *time.Location) []string {
	sorted := make([]model.CalendarEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	lines := make([]string, 0, len(sorted))
	for i, e := range sorted {
		when := allDay
		if !e.AllDay {
			when = util.PrettyTime(e.Start, loc)
		}
		line := when + " → " + e.Title
		if where := EventPlace(e); where != "" {
			line += " → " + where
		}
		if i > 0 && !e.AllDay {
			prev := sorted[i-1]
			if !prev.End.IsZero() && util.PrettyTime(prev.End, loc) == when {
				line += backToBack
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// EventPlace is the location, or the meeting link when there is none.
func EventPlace(e model.CalendarEvent) string {
	if e.Location != "" {
		return e.Location
	}
	return e.MeetingLink
}

// TaskLines renders "Name (Area)" for at most limit tasks.
func TaskLines(tasks []model.Task, limit int) []string {
	var lines []string
	for _, t := range tasks {
		if len(lines) == limit {
			break
		}
		if t.Done {
			continue
		}
		line := t.Name
		if area := t.AreaLabel(); area != "" {
			line += " (" + area + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

// EmailLines renders one sender and subject line for at most limit emails.
func EmailLines(emails []model.Email, limit int) []string {
	if len(emails) > limit {
		emails = emails[:limit]
	}
	lines := make([]string, 0, len(emails))
	for _, e := range emails {
		subject := e.Subject
		if subject == "" {
			subject = "(No subject)"
		}
		lines = append(lines, e.Sender()+" — "+subject)
	}
	return lines
}
