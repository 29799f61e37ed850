package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const xdgAppName = "morningbrief"

// Settings is everything a brief run needs, read from the environment.
type Settings struct {
	Slack    SlackConfig
	Notion   NotionConfig
	Google   GoogleConfig
	OpenAI   OpenAIConfig
	Eleven   ElevenLabsConfig
	Timezone string `env:"TZ" env-default:"Europe/Oslo" validate:"required"`

	DaysAhead     int           `env:"DAYS_AHEAD" env-default:"14" validate:"gte=0,lte=365"`
	UserName      string        `env:"USER_NAME" env-default:"Oliver"`
	UserNickname  string        `env:"USER_NICKNAME" env-default:"GOAT"`
	SourceTimeout time.Duration `env:"SOURCE_TIMEOUT" env-default:"60s" validate:"gt=0"`
	AudioPath     string        `env:"AUDIO_PATH" env-default:"out/audio/daily-brief.mp3"`
	LogLevel      string        `env:"LOG_LEVEL" env-default:"info"`
}

type SlackConfig struct {
	BotToken        string `env:"SLACK_BOT_TOKEN"`
	UserID          string `env:"SLACK_USER_ID"`
	FallbackChannel string `env:"SLACK_FALLBACK_CHANNEL"`
}

// NotionConfig carries the task store credentials and the schema overrides
// handed to the task resolver.
type NotionConfig struct {
	APIKey          string        `env:"NOTION_API_KEY"`
	DatabaseID      string        `env:"NOTION_TASK_DATABASE_ID"`
	DueProperty     string        `env:"NOTION_DUE_PROPERTY"`
	StatusProperty  string        `env:"NOTION_STATUS_PROPERTY"`
	DoneValues      string        `env:"NOTION_DONE_VALUES"`
	DoneCheckbox    string        `env:"NOTION_DONE_CHECKBOX_PROPERTY"`
	LegacySelectAnd bool          `env:"NOTION_LEGACY_SELECT_AND" env-default:"true"`
	RequestTimeout  time.Duration `env:"NOTION_TIMEOUT" env-default:"30s"`
}

type GoogleConfig struct {
	CalendarID string `env:"GOOGLE_CALENDAR_ID" env-default:"primary"`
	GmailQuery string `env:"GMAIL_QUERY" env-default:"label:INBOX newer_than:1d"`
	// ImportantSenders is a comma separated list of addresses.
	ImportantSenders string `env:"IMPORTANT_SENDERS"`
	GmailMax         int    `env:"GMAIL_MAX" env-default:"5" validate:"gte=1,lte=50"`
	Disabled         bool   `env:"GOOGLE_DISABLED" env-default:"false"`
}

type OpenAIConfig struct {
	APIKey        string `env:"OPENAI_API_KEY"`
	Model         string `env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	VoiceMaxChars int    `env:"VOICE_MAX_CHARS" env-default:"1200" validate:"gte=0"`
	VoiceMinSecs  int    `env:"VOICE_MIN_SECS" env-default:"45"`
	VoiceMaxSecs  int    `env:"VOICE_MAX_SECS" env-default:"70"`
}

type ElevenLabsConfig struct {
	APIKey  string `env:"ELEVENLABS_API_KEY"`
	VoiceID string `env:"ELEVENLABS_VOICE_ID"`
	ModelID string `env:"ELEVENLABS_MODEL_ID" env-default:"eleven_multilingual_v2"`
	Mock    bool   `env:"MOCK_ELEVENLABS" env-default:"false"`
}

var validate = validator.New()

// Load reads an optional dotenv file and then the process environment.
// A missing dotenv file is not an error.
func Load(envFile string) (*Settings, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := new(Settings)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.trim()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

// Secrets pasted into CI often carry trailing newlines.
func (s *Settings) trim() {
	for _, p := range []*string{
		&s.Timezone, &s.UserName, &s.UserNickname, &s.AudioPath, &s.LogLevel,
		&s.Slack.BotToken, &s.Slack.UserID, &s.Slack.FallbackChannel,
		&s.Notion.APIKey, &s.Notion.DatabaseID, &s.Notion.DueProperty,
		&s.Notion.StatusProperty, &s.Notion.DoneValues, &s.Notion.DoneCheckbox,
		&s.Google.CalendarID, &s.Google.GmailQuery, &s.Google.ImportantSenders,
		&s.OpenAI.APIKey, &s.OpenAI.Model,
		&s.Eleven.APIKey, &s.Eleven.VoiceID, &s.Eleven.ModelID,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// Location returns the configured timezone. Load has already validated it.
func (s *Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NotionEnabled reports whether the task store is configured.
func (s *Settings) NotionEnabled() bool {
	return s.Notion.APIKey != "" && s.Notion.DatabaseID != ""
}

// GetConfigDir returns ~/.config/morningbrief, where Google credentials and
// the cached OAuth token live.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}
