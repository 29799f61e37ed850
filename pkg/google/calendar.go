package google

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/morningbrief/pkg/model"
)

const noTitle = "(No title)"

// CalendarClient reads one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
	log        zerolog.Logger
}

// NewCalendarClient creates a client for calendarID. All-day events are
// anchored at midnight in loc.
func NewCalendarClient(srv *calendar.Service, calendarID string, loc *time.Location, log zerolog.Logger) *CalendarClient {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, loc: loc, log: log}
}

// EventsBetween lists single (expanded) events starting in [start, end),
// ordered by start time.
func (c *CalendarClient) EventsBetween(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	var out []model.CalendarEvent
	call := c.srv.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			ev, err := c.convert(item)
			if err != nil {
				c.log.Warn().Err(err).Str("event", item.Id).Msg("skipping event with unreadable time")
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar %s: %w", c.calendarID, err)
	}

	c.log.Info().Int("events", len(out)).Str("calendar", c.calendarID).
		Time("from", start).Time("to", end).Msg("calendar fetched")
	if len(out) == 0 {
		c.log.Warn().Msg("calendar returned no events, check GOOGLE_CALENDAR_ID and the timezone window")
	}
	return out, nil
}

func (c *CalendarClient) convert(e *calendar.Event) (model.CalendarEvent, error) {
	ev := model.CalendarEvent{
		ID:          e.Id,
		Title:       e.Summary,
		Location:    e.Location,
		MeetingLink: meetingLink(e),
	}
	if ev.Title == "" {
		ev.Title = noTitle
	}

	var err error
	if ev.Start, ev.AllDay, err = c.eventTime(e.Start); err != nil {
		return ev, fmt.Errorf("start: %w", err)
	}
	var endAllDay bool
	if ev.End, endAllDay, err = c.eventTime(e.End); err != nil {
		return ev, fmt.Errorf("end: %w", err)
	}
	ev.AllDay = ev.AllDay || endAllDay
	return ev, nil
}

func (c *CalendarClient) eventTime(t *calendar.EventDateTime) (time.Time, bool, error) {
	switch {
	case t == nil:
		return time.Time{}, false, nil
	case t.DateTime != "":
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false, err
	case t.Date != "":
		parsed, err := time.ParseInLocation(time.DateOnly, t.Date, c.loc)
		return parsed, true, err
	default:
		return time.Time{}, false, nil
	}
}

// meetingLink prefers the Meet link, then the first conference entry point.
func meetingLink(e *calendar.Event) string {
	if e.HangoutLink != "" {
		return e.HangoutLink
	}
	if e.ConferenceData != nil {
		for _, ep := range e.ConferenceData.EntryPoints {
			if ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}
