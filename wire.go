package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/morningbrief/pkg/auth"
	"github.com/harrisonrobin/morningbrief/pkg/brief"
	"github.com/harrisonrobin/morningbrief/pkg/config"
	"github.com/harrisonrobin/morningbrief/pkg/google"
	"github.com/harrisonrobin/morningbrief/pkg/logging"
	"github.com/harrisonrobin/morningbrief/pkg/notion"
	"github.com/harrisonrobin/morningbrief/pkg/slack"
	"github.com/harrisonrobin/morningbrief/pkg/tasks"
	"github.com/harrisonrobin/morningbrief/pkg/tts"
	"github.com/harrisonrobin/morningbrief/pkg/voice"
)

func newLogger(cfg *config.Settings) zerolog.Logger {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level, os.Stderr)
}

func nowIn(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

func newResolver(cfg *config.Settings, log zerolog.Logger) *tasks.Resolver {
	store := notion.NewClient(cfg.Notion.APIKey, notion.WithTimeout(cfg.Notion.RequestTimeout))
	return tasks.NewResolver(store, tasks.Options{
		DueProperty:     cfg.Notion.DueProperty,
		StatusProperty:  cfg.Notion.StatusProperty,
		DoneValues:      config.SplitList(cfg.Notion.DoneValues),
		DoneCheckbox:    cfg.Notion.DoneCheckbox,
		LegacySelectAnd: cfg.Notion.LegacySelectAnd,
	}, logging.Component(log, "notion"))
}

// newRunner wires every configured source and sink. A source that cannot be
// set up is left out and the brief runs without it.
func newRunner(ctx context.Context, cfg *config.Settings, log zerolog.Logger) *brief.Runner {
	loc := cfg.Location()
	r := &brief.Runner{
		Opts: brief.Options{
			Location:         loc,
			UserName:         cfg.UserName,
			SlackUser:        cfg.Slack.UserID,
			FallbackChannel:  cfg.Slack.FallbackChannel,
			GmailQuery:       cfg.Google.GmailQuery,
			ImportantSenders: config.SplitList(cfg.Google.ImportantSenders),
			GmailMax:         cfg.Google.GmailMax,
			DatabaseID:       cfg.Notion.DatabaseID,
			DaysAhead:        cfg.DaysAhead,
			SourceTimeout:    cfg.SourceTimeout,
			AudioPath:        cfg.AudioPath,
		},
		Out: os.Stdout,
		Log: logging.Component(log, "brief"),
	}

	if !cfg.Google.Disabled {
		if err := wireGoogle(ctx, r, cfg, log); err != nil {
			log.Error().Err(err).Msg("Google sources unavailable")
		}
	}

	if cfg.NotionEnabled() {
		r.Tasks = newResolver(cfg, log)
	} else {
		log.Info().Msg("Notion not configured, skipping tasks")
	}

	if cfg.Slack.BotToken != "" {
		c, err := slack.New(cfg.Slack.BotToken, logging.Component(log, "slack"))
		if err != nil {
			log.Warn().Err(err).Msg("Slack delivery unavailable")
		} else {
			r.Slack = c
		}
	}

	if cfg.OpenAI.APIKey != "" {
		w, err := voice.NewOpenAI(ctx, cfg.OpenAI.APIKey, cfg.OpenAI.Model, voice.Config{
			Nickname: cfg.UserNickname,
			Timezone: loc,
			MinSecs:  cfg.OpenAI.VoiceMinSecs,
			MaxSecs:  cfg.OpenAI.VoiceMaxSecs,
			MaxChars: cfg.OpenAI.VoiceMaxChars,
		}, logging.Component(log, "voice"))
		if err != nil {
			log.Warn().Err(err).Msg("voice script writer unavailable")
		} else {
			r.Voice = w
		}
	}

	if cfg.Eleven.APIKey != "" || cfg.Eleven.Mock {
		s, err := tts.New(cfg.Eleven.APIKey, cfg.Eleven.VoiceID, cfg.Eleven.ModelID,
			logging.Component(log, "tts"), tts.WithMock(cfg.Eleven.Mock))
		if err != nil {
			log.Warn().Err(err).Msg("speech synthesis unavailable")
		} else {
			r.Speech = s
		}
	}
	return r
}

func wireGoogle(ctx context.Context, r *brief.Runner, cfg *config.Settings, log zerolog.Logger) error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	a := &auth.Authenticator{Dir: dir, Log: logging.Component(log, "auth")}
	client, err := a.Client(ctx, auth.Scopes)
	if err != nil {
		return err
	}
	svc, err := google.NewServices(ctx, client)
	if err != nil {
		return err
	}
	r.Calendar = google.NewCalendarClient(svc.Calendar, cfg.Google.CalendarID, cfg.Location(), logging.Component(log, "calendar"))
	r.Mail = google.NewGmailClient(svc.Gmail, logging.Component(log, "gmail"))
	return nil
}
