// Package tts synthesizes the voice script with ElevenLabs.
package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haguro/elevenlabs-go"
	"github.com/rs/zerolog"
)

const (
	DefaultModelID = "eleven_multilingual_v2"
	OutputFormat   = "mp3_44100_128"

	defaultTimeout = 60 * time.Second

	// Lower stability reads faster and more dynamically.
	stability       = 0.4
	similarityBoost = 0.75
)

// speakFunc renders one text-to-speech request to encoded audio.
type speakFunc func(ctx context.Context, voiceID string, req elevenlabs.TextToSpeechRequest) ([]byte, error)

// Client calls the ElevenLabs text-to-speech endpoint, or writes a
// placeholder file in mock mode.
type Client struct {
	apiKey  string
	voiceID string
	modelID string
	mock    bool
	timeout time.Duration
	speak   speakFunc
	log     zerolog.Logger
}

type Option func(*Client)

// WithTimeout bounds a single synthesis request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMock skips the API and writes a text placeholder instead of audio.
func WithMock(mock bool) Option {
	return func(c *Client) { c.mock = mock }
}

// New validates credentials unless mock mode is on.
func New(apiKey, voiceID, modelID string, log zerolog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		timeout: defaultTimeout,
		log:     log,
	}
	c.speak = c.speakAPI
	for _, opt := range opts {
		opt(c)
	}
	if c.modelID == "" {
		c.modelID = DefaultModelID
	}
	if c.mock {
		log.Info().Msg("ElevenLabs mock mode, no API calls")
		return c, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing ELEVENLABS_API_KEY")
	}
	if c.voiceID == "" {
		return nil, fmt.Errorf("missing ELEVENLABS_VOICE_ID")
	}
	return c, nil
}

// Mock reports whether the client writes placeholders.
func (c *Client) Mock() bool { return c.mock }

// speakAPI binds an SDK client to ctx for one call.
func (c *Client) speakAPI(ctx context.Context, voiceID string, req elevenlabs.TextToSpeechRequest) ([]byte, error) {
	api := elevenlabs.NewClient(ctx, c.apiKey, c.timeout)
	return api.TextToSpeech(voiceID, req, elevenlabs.OutputFormat(OutputFormat))
}

// Prepare rewrites pause-heavy punctuation so the voice reads faster.
func Prepare(text string) string {
	r := strings.NewReplacer(
		"/", " and ",
		" — ", ", ",
		" → ", ", ",
	)
	return r.Replace(text)
}

// Synthesize speaks text into an mp3 at outPath, creating parent directories.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) error {
	text = Prepare(text)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	if c.mock {
		return c.writePlaceholder(text, outPath)
	}

	audio, err := c.speak(ctx, c.voiceID, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: &elevenlabs.VoiceSettings{
			Stability:       stability,
			SimilarityBoost: similarityBoost,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs text-to-speech: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("elevenlabs returned no audio")
	}

	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	c.log.Info().Int("bytes", len(audio)).Str("path", outPath).Int("chars", len(text)).Msg("audio saved")
	return nil
}

func (c *Client) writePlaceholder(text, outPath string) error {
	preview := text
	if r := []rune(preview); len(r) > 200 {
		preview = string(r[:200])
	}
	content := fmt.Sprintf("# MOCK AUDIO FILE - ElevenLabs API not called\nText length: %d chars\nPreview: %s...\n", len(text), preview)
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write mock audio: %w", err)
	}
	c.log.Info().Str("path", outPath).Int("chars", len(text)).Msg("mock audio written")
	return nil
}
