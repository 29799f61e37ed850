// Package brief runs one morning brief: gather, summarise, deliver, speak.
package brief

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/morningbrief/pkg/model"
	"github.com/harrisonrobin/morningbrief/pkg/summary"
	"github.com/harrisonrobin/morningbrief/pkg/tasks"
	"github.com/harrisonrobin/morningbrief/pkg/util"
)

const (
	poolSize = 4

	AudioTitle   = "Daily Brief (Audio)"
	AudioComment = "🔊 Here's your morning audio summary."
)

// ErrNotPosted is returned when neither the DM nor the fallback channel took
// the summary.
var ErrNotPosted = errors.New("failed to post summary to Slack")

type CalendarSource interface {
	EventsBetween(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
}

type MailSource interface {
	Important(ctx context.Context, query string, senders []string, limit int) ([]model.Email, error)
}

type TaskSource interface {
	Resolve(ctx context.Context, req tasks.Request) model.Buckets
}

type Poster interface {
	PostDM(ctx context.Context, user, text string) error
	PostChannel(ctx context.Context, channel, text string) error
	UploadDM(ctx context.Context, user, path, title, comment string) error
}

type ScriptWriter interface {
	Script(ctx context.Context, now time.Time, events []model.CalendarEvent, tasks []model.Task, emails []model.Email) string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
	Mock() bool
}

// Options are the per-run settings.
type Options struct {
	Location         *time.Location
	UserName         string
	SlackUser        string
	FallbackChannel  string
	GmailQuery       string
	ImportantSenders []string
	GmailMax         int
	DatabaseID       string
	DaysAhead        int
	SourceTimeout    time.Duration
	AudioPath        string
	// DryRun prints the summary and skips every delivery step.
	DryRun bool
}

// Runner wires the sources and sinks. Nil sources are skipped and nil sinks
// disable their step.
type Runner struct {
	Calendar CalendarSource
	Mail     MailSource
	Tasks    TaskSource
	Slack    Poster
	Voice    ScriptWriter
	Speech   Synthesizer

	Opts Options
	Out  io.Writer
	Log  zerolog.Logger
	Now  func() time.Time
}

// Result describes what one run produced.
type Result struct {
	Summary string
	Events  []model.CalendarEvent
	Emails  []model.Email
	Tasks   model.Buckets
	Posted  bool
	Audio   string
}

// Run gathers all sources concurrently and delivers the brief. It fails only
// when the summary could not be posted.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	loc := r.Opts.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	res := r.gather(ctx, now, loc)
	res.Summary = summary.Make(summary.Input{
		Name:     r.Opts.UserName,
		Now:      now,
		Location: loc,
		Events:   res.Events,
		Tasks:    res.Tasks.Today,
		Emails:   res.Emails,
	})

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, res.Summary)

	if r.Opts.DryRun {
		r.Log.Info().Msg("dry run, skipping delivery")
		return res, nil
	}

	res.Posted = r.post(ctx, res.Summary)
	res.Audio = r.audio(ctx, now, res)

	if !res.Posted {
		r.Log.Error().Msg("summary was not delivered")
		return res, ErrNotPosted
	}
	return res, nil
}

// gather runs every configured source on a bounded pool. A source that
// fails or times out contributes nothing and never cancels the others.
func (r *Runner) gather(ctx context.Context, now time.Time, loc *time.Location) *Result {
	res := &Result{}
	dayStart, _ := util.DayBounds(now, loc)
	startISO, endISO := util.DayRange(now, loc)

	timeout := r.Opts.SourceTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	var g errgroup.Group
	g.SetLimit(poolSize)

	run := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			started := time.Now()
			if err := fn(sctx); err != nil {
				r.Log.Error().Err(err).Str("source", name).Msg("source failed")
				return nil
			}
			r.Log.Debug().Str("source", name).Dur("took", time.Since(started)).Msg("source done")
			return nil
		})
	}

	if r.Calendar != nil {
		run("calendar", func(ctx context.Context) error {
			events, err := r.Calendar.EventsBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			res.Events = events
			return nil
		})
	}
	if r.Mail != nil {
		run("gmail", func(ctx context.Context) error {
			emails, err := r.Mail.Important(ctx, r.Opts.GmailQuery, r.Opts.ImportantSenders, r.Opts.GmailMax)
			if err != nil {
				return err
			}
			res.Emails = emails
			return nil
		})
	}
	if r.Tasks != nil && r.Opts.DatabaseID != "" {
		run("notion", func(ctx context.Context) error {
			buckets := r.Tasks.Resolve(ctx, tasks.Request{
				DatabaseID:    r.Opts.DatabaseID,
				Location:      loc,
				LookaheadDays: r.Opts.DaysAhead,
				WindowStart:   startISO,
				WindowEnd:     endISO,
				Now:           now,
			})
			// Buckets resolved before the deadline are incomplete.
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Tasks = buckets
			return nil
		})
	}
	_ = g.Wait()

	r.Log.Info().
		Int("events", len(res.Events)).
		Int("emails", len(res.Emails)).
		Int("tasks_today", len(res.Tasks.Today)).
		Int("tasks_overdue", len(res.Tasks.Overdue)).
		Int("tasks_upcoming", len(res.Tasks.Upcoming)).
		Msg("sources gathered")
	return res
}

func (r *Runner) post(ctx context.Context, text string) bool {
	if r.Slack == nil {
		r.Log.Warn().Msg("Slack not configured")
		return false
	}
	if r.Opts.SlackUser != "" {
		if err := r.Slack.PostDM(ctx, r.Opts.SlackUser, text); err != nil {
			r.Log.Error().Err(err).Msg("Slack DM failed")
		} else {
			return true
		}
	}
	if r.Opts.FallbackChannel != "" {
		if err := r.Slack.PostChannel(ctx, r.Opts.FallbackChannel, text); err != nil {
			r.Log.Error().Err(err).Msg("Slack fallback channel post failed")
		} else {
			return true
		}
	}
	return false
}

// audio speaks the brief and uploads it to the DM. Every failure here is
// logged and swallowed. It returns the written path, if any.
func (r *Runner) audio(ctx context.Context, now time.Time, res *Result) string {
	if r.Speech == nil {
		r.Log.Info().Msg("speech synthesis not configured, skipping audio")
		return ""
	}

	text := res.Summary
	if r.Voice != nil {
		text = r.Voice.Script(ctx, now, res.Events, res.Tasks.Today, res.Emails)
		if text == "" {
			r.Log.Warn().Msg("voice script empty, skipping audio")
			return ""
		}
	} else {
		r.Log.Info().Msg("no language model configured, speaking the summary")
	}

	path := r.Opts.AudioPath
	if err := r.Speech.Synthesize(ctx, text, path); err != nil {
		r.Log.Warn().Err(err).Msg("speech synthesis failed")
		return ""
	}
	if r.Speech.Mock() {
		r.Log.Info().Str("path", path).Msg("mock audio, not uploading")
		return path
	}
	if r.Slack != nil && r.Opts.SlackUser != "" {
		if err := r.Slack.UploadDM(ctx, r.Opts.SlackUser, path, AudioTitle, AudioComment); err != nil {
			r.Log.Warn().Err(err).Msg("audio upload failed")
		}
	}
	return path
}
