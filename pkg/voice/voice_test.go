package voice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brief "github.com/harrisonrobin/morningbrief/pkg/model"
)

type fakeChat struct {
	reply string
	err   error
	got   []*schema.Message
	opts  []model.Option
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.got = in
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func str(s string) *string { return &s }

func TestScriptPayload(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	chat := &fakeChat{reply: "  Morning GOAT. Big day.  "}
	w := NewWriter(chat, Config{Nickname: "GOAT", Timezone: oslo, MaxChars: 1200}, zerolog.Nop())

	now := time.Date(2025, 1, 14, 6, 0, 0, 0, oslo)
	got := w.Script(context.Background(), now,
		[]brief.CalendarEvent{
			{Title: "Standup", Start: time.Date(2025, 1, 14, 9, 0, 0, 0, oslo), MeetingLink: "https://meet"},
			{Title: "Holiday", AllDay: true},
		},
		[]brief.Task{
			{Name: "Write report", Area: str("Work")},
			{Name: "Closed", Done: true},
			{Name: "Call dentist"},
		},
		[]brief.Email{
			{FromName: "Ada", Subject: "a"}, {FromEmail: "b@x", Subject: "b"},
			{FromName: "C", Subject: "c"}, {FromName: "D", Subject: "d"},
		},
	)
	assert.Equal(t, "Morning GOAT. Big day.", got)

	require.Len(t, chat.got, 2)
	assert.Equal(t, schema.System, chat.got[0].Role)
	assert.Contains(t, chat.got[0].Content, `"GOAT"`)
	assert.Contains(t, chat.got[0].Content, "45-70 second")
	assert.NotEmpty(t, chat.opts)

	var p payload
	require.NoError(t, json.Unmarshal([]byte(chat.got[1].Content), &p))
	assert.Equal(t, "Europe/Oslo", p.Timezone)
	assert.Equal(t, "Tuesday 14 January 2025", p.Today)
	require.Len(t, p.Events, 2)
	assert.Equal(t, "09:00", p.Events[0].Time)
	assert.Equal(t, "Tuesday", p.Events[0].Weekday)
	assert.Equal(t, "All day", p.Events[1].Time)
	require.Len(t, p.Tasks, 2, "done tasks are not sent")
	assert.Equal(t, "Work", *p.Tasks[0].Area)
	assert.Nil(t, p.Tasks[1].Area)
	require.Len(t, p.Emails, 3)
	assert.Equal(t, "b@x", p.Emails[1].From)
}

func TestScriptFailures(t *testing.T) {
	w := NewWriter(&fakeChat{err: errors.New("rate limited")}, Config{}, zerolog.Nop())
	assert.Empty(t, w.Script(context.Background(), time.Now(), nil, nil, nil))

	w = NewWriter(&fakeChat{reply: "   "}, Config{}, zerolog.Nop())
	assert.Empty(t, w.Script(context.Background(), time.Now(), nil, nil, nil))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(context.Background(), "", "gpt-4o-mini", Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestTrim(t *testing.T) {
	short := "One. Two."
	assert.Equal(t, short, Trim(short, 1200))
	assert.Equal(t, short, Trim(short, 0))

	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, "This is sentence number "+strings.Repeat("x", 10))
	}
	sentences = append(sentences, "Stay legendary")
	long := strings.Join(sentences, ". ") + "."

	got := Trim(long, 200)
	assert.Less(t, len(got), len(long))
	assert.True(t, strings.HasPrefix(got, strings.Join(sentences[:6], ". ")+". … "))
	assert.True(t, strings.HasSuffix(got, "Stay legendary."))
}
