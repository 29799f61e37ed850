// Package voice turns the day's agenda into a short spoken script with a chat
// model.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	brief "github.com/harrisonrobin/morningbrief/pkg/model"
	"github.com/harrisonrobin/morningbrief/pkg/util"
)

const (
	temperature = 0.35
	// headSentences and the final sentence survive trimming.
	headSentences = 6
	maxEmails     = 3
)

// Config tunes the script length and the addressee.
type Config struct {
	Nickname string
	Timezone *time.Location
	MinSecs  int
	MaxSecs  int
	// MaxChars triggers the trim guardrail. Zero disables it.
	MaxChars int
}

// Writer generates scripts with a chat model.
type Writer struct {
	chat model.BaseChatModel
	cfg  Config
	log  zerolog.Logger
}

// NewOpenAI builds a Writer backed by an OpenAI chat model.
func NewOpenAI(ctx context.Context, apiKey, modelName string, cfg Config, log zerolog.Logger) (*Writer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewWriter(chat, cfg, log), nil
}

func NewWriter(chat model.BaseChatModel, cfg Config, log zerolog.Logger) *Writer {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Nickname == "" {
		cfg.Nickname = "there"
	}
	return &Writer{chat: chat, cfg: cfg, log: log}
}

type eventItem struct {
	Title    string `json:"title"`
	Time     string `json:"time"`
	Weekday  string `json:"weekday"`
	Location string `json:"location,omitempty"`
	Link     string `json:"link,omitempty"`
}

type taskItem struct {
	Name string  `json:"name"`
	Area *string `json:"area"`
}

type emailItem struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
}

type payload struct {
	Nickname     string            `json:"user_nickname"`
	Timezone     string            `json:"timezone"`
	Today        string            `json:"today"`
	Events       []eventItem       `json:"today_events"`
	Tasks        []taskItem        `json:"tasks_today"`
	Emails       []emailItem       `json:"emails_top"`
	Instructions map[string]string `json:"instructions"`
}

var instructions = map[string]string{
	"calendar":     "Say 'Today you have…' then list briefly with 24-hour times and titles; include location or link only if useful.",
	"back_to_back": "If two events are adjacent or locations differ, suggest a short buffer.",
	"tasks":        "Group all tasks by their 'area' field: 'For [Area], you have: [task 1], [task 2]'. Tasks without an area go under 'Other tasks'. Do not mention dates, they are all due today.",
	"emails":       "Name the top 2-3 senders and the gist of each subject.",
	"tone":         "Natural voice, slight humor, never overdone. Only today, no future references.",
}

// Script returns the spoken script, or "" when the model fails or answers
// with nothing. Done tasks are never sent to the model.
func (w *Writer) Script(ctx context.Context, now time.Time, events []brief.CalendarEvent, tasks []brief.Task, emails []brief.Email) string {
	body, err := json.Marshal(w.payload(now, events, tasks, emails))
	if err != nil {
		w.log.Error().Err(err).Msg("failed to encode voice payload")
		return ""
	}

	resp, err := w.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(w.systemPrompt()),
		schema.UserMessage(string(body)),
	}, model.WithTemperature(temperature))
	if err != nil {
		w.log.Error().Err(err).Msg("voice script generation failed")
		return ""
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		w.log.Warn().Msg("chat model returned an empty voice script")
		return ""
	}

	text := Trim(strings.TrimSpace(resp.Content), w.cfg.MaxChars)
	w.log.Info().Int("chars", len(text)).Msg("voice script generated")
	return text
}

func (w *Writer) payload(now time.Time, events []brief.CalendarEvent, tasks []brief.Task, emails []brief.Email) payload {
	loc := w.cfg.Timezone
	p := payload{
		Nickname:     w.cfg.Nickname,
		Timezone:     loc.String(),
		Today:        now.In(loc).Format("Monday 2 January 2006"),
		Events:       []eventItem{},
		Tasks:        []taskItem{},
		Emails:       []emailItem{},
		Instructions: instructions,
	}

	for _, e := range events {
		item := eventItem{Title: e.Title, Location: e.Location, Link: e.MeetingLink, Time: "All day"}
		if !e.AllDay {
			item.Time = util.PrettyTime(e.Start, loc)
			item.Weekday = util.Weekday(e.Start, loc)
		}
		p.Events = append(p.Events, item)
	}

	areas := make(map[string]int)
	for _, t := range tasks {
		if t.Done {
			continue
		}
		p.Tasks = append(p.Tasks, taskItem{Name: t.Name, Area: t.Area})
		label := t.AreaLabel()
		if label == "" {
			label = "None"
		}
		areas[label]++
	}
	w.log.Debug().Interface("areas", areas).Msg("tasks by area for voice script")

	for i, e := range emails {
		if i == maxEmails {
			break
		}
		from := e.FromName
		if from == "" {
			from = e.FromEmail
		}
		p.Emails = append(p.Emails, emailItem{From: from, Subject: e.Subject})
	}
	return p
}

func (w *Writer) systemPrompt() string {
	lo, hi := w.cfg.MinSecs, w.cfg.MaxSecs
	if lo <= 0 || hi < lo {
		lo, hi = 45, 70
	}
	return fmt.Sprintf(`You are a world-class personal assistant creating a %d-%d second VOICE NOTE.
Speak to the user as "%s".

STYLE:
- Warm, crisp, competent; a hint of playful wit.
- Natural speech only: no headings, no bullets, no emoji.
- 24-hour times for %s (e.g. 09:05, 16:30). Say the day and date up front.
- Never read raw URLs; say "Zoom link", "calendar link" or "location link".
- End with ONE original, tasteful one-liner (not a famous quote, 6-14 words).

CONTENT:
- Group all tasks by their area. Tasks without an area are "Other tasks".
- Notice back-to-back events and suggest a short buffer when sensible.
- Keep the top 2-3 emails only.
- If a section is empty, acknowledge it briefly and move on.
- Only today. Never mention upcoming events or tasks.`,
		lo, hi, w.cfg.Nickname, w.cfg.Timezone.String())
}

// Trim shortens a script longer than maxChars to its first sentences plus the
// closing one-liner. maxChars <= 0 disables trimming.
func Trim(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	parts := strings.Split(text, ". ")
	if len(parts) <= headSentences {
		return text
	}
	head := strings.Join(parts[:headSentences], ". ")
	tail := parts[len(parts)-1]
	return strings.Trim(head+". … "+tail, ". ") + "."
}
