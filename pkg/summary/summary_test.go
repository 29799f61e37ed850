package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/morningbrief/pkg/model"
)

func str(s string) *string { return &s }

func TestMake(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	at := func(h, m int) time.Time { return time.Date(2025, 11, 3, h, m, 0, 0, oslo) }

	got := Make(Input{
		Name:     "Oliver",
		Now:      at(6, 30),
		Location: oslo,
		Events: []model.CalendarEvent{
			{Title: "Review", Start: at(10, 0), End: at(11, 0), Location: "Room 4"},
			{Title: "Standup", Start: at(9, 0), End: at(10, 0), MeetingLink: "https://meet.google.com/x"},
			{Title: "Holiday", Start: at(0, 0), AllDay: true},
		},
		Tasks: []model.Task{
			{Name: "Write report", Area: str("Work")},
			{Name: "Closed", Done: true},
			{Name: "Call dentist"},
		},
		Emails: []model.Email{
			{FromName: "Ada", Subject: "Engines"},
			{FromEmail: "bob@example.com"},
		},
	})

	want := strings.Join([]string{
		"Good morning, Oliver — Mon 3 Nov",
		"",
		"🗓️ Today",
		"• All day → Holiday",
		"• 09:00 → Standup → https://meet.google.com/x",
		"• 10:00 → Review → Room 4 (back-to-back — plan travel buffer)",
		"",
		"🧰 Tasks Today",
		"• Write report (Work)",
		"• Call dentist",
		"",
		"📥 Inbox Today",
		"• Ada — Engines",
		"• bob@example.com — (No subject)",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestMakeEmpty(t *testing.T) {
	got := Make(Input{Name: "Oliver", Now: time.Date(2025, 1, 14, 7, 0, 0, 0, time.UTC), Location: time.UTC})
	assert.Contains(t, got, "🗓️ Today\n(none)")
	assert.Contains(t, got, "🧰 Tasks Today\n(none)")
	assert.Contains(t, got, "📥 Inbox Today\n(none)")
}

func TestLimits(t *testing.T) {
	var tasks []model.Task
	var emails []model.Email
	for i := 0; i < 10; i++ {
		tasks = append(tasks, model.Task{Name: "t"})
		emails = append(emails, model.Email{Subject: "s"})
	}
	assert.Len(t, TaskLines(tasks, MaxTasks), 5)
	assert.Len(t, EmailLines(emails, MaxEmails), 3)
	assert.Equal(t, "Unknown — s", EmailLines(emails, 1)[0])
}
