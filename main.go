package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/morningbrief/pkg/auth"
	"github.com/harrisonrobin/morningbrief/pkg/config"
	"github.com/harrisonrobin/morningbrief/pkg/logging"
	"github.com/harrisonrobin/morningbrief/pkg/tasks"
	"github.com/harrisonrobin/morningbrief/pkg/util"
)

var (
	envFile  string
	logLevel string
	dryRun   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "morningbrief",
		Short: "Post a morning brief of today's calendar, tasks and inbox to Slack.",
		Long: `morningbrief gathers today's Google Calendar events, due Notion tasks and
recent Gmail threads, posts a short summary to Slack and attaches a spoken
version of it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrief(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "print the brief without posting or synthesizing audio")

	root.AddCommand(newAuthCmd(), newTasksCmd())
	return root
}

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Calendar and Gmail access, replacing any cached token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			dir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("could not find configuration directory: %w", err)
			}
			tokenFile := filepath.Join(dir, auth.TokenFile)
			if err := os.Remove(tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("could not delete token file %s, please delete it manually: %w", tokenFile, err)
			}

			a := &auth.Authenticator{Dir: dir, Interactive: true, Log: logging.Component(log, "auth")}
			if err := a.Authorize(cmd.Context(), auth.Scopes); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			log.Info().Str("token_file", tokenFile).Msg("authentication successful")
			return nil
		},
	}
}

func newTasksCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Resolve overdue, today and upcoming Notion tasks and print them as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if !cfg.NotionEnabled() {
				return fmt.Errorf("NOTION_API_KEY and NOTION_TASK_DATABASE_ID must be set")
			}
			if cmd.Flags().Changed("days") {
				cfg.DaysAhead = days
			}

			loc := cfg.Location()
			now := nowIn(loc)
			start, end := util.DayRange(now, loc)
			buckets := newResolver(cfg, log).Resolve(cmd.Context(), tasks.Request{
				DatabaseID:    cfg.Notion.DatabaseID,
				Location:      loc,
				LookaheadDays: cfg.DaysAhead,
				WindowStart:   start,
				WindowEnd:     end,
				Now:           now,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(buckets)
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "upcoming lookahead in days (overrides DAYS_AHEAD)")
	return cmd
}

func runBrief(ctx context.Context) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	runner := newRunner(ctx, cfg, log)
	runner.Opts.DryRun = dryRun
	if _, err := runner.Run(ctx); err != nil {
		return err
	}
	return nil
}
