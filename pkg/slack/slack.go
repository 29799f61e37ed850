// Package slack delivers the brief over Slack.
package slack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Client posts messages and files as the bot user.
type Client struct {
	api *slack.Client
	log zerolog.Logger
}

type Option = slack.Option

// WithAPIURL points the client at another Slack API root (tests).
func WithAPIURL(u string) Option {
	return slack.OptionAPIURL(u)
}

func New(token string, log zerolog.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("missing SLACK_BOT_TOKEN")
	}
	return &Client{api: slack.New(token, opts...), log: log}, nil
}

// dmChannel opens (or reuses) the direct message channel with user.
func (c *Client) dmChannel(ctx context.Context, user string) (string, error) {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{user}})
	if err != nil {
		return "", fmt.Errorf("open DM with %s: %w", user, err)
	}
	return ch.ID, nil
}

// PostDM sends text to user as a direct message.
func (c *Client) PostDM(ctx context.Context, user, text string) error {
	ch, err := c.dmChannel(ctx, user)
	if err != nil {
		return err
	}
	return c.PostChannel(ctx, ch, text)
}

// PostChannel sends text to a channel id or name.
func (c *Client) PostChannel(ctx context.Context, channel, text string) error {
	_, ts, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post to %s: %w", channel, err)
	}
	c.log.Info().Str("channel", channel).Str("ts", ts).Msg("message posted")
	return nil
}

// UploadDM uploads the file at path into the DM with user.
func (c *Client) UploadDM(ctx context.Context, user, path, title, comment string) error {
	ch, err := c.dmChannel(ctx, user)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	file, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:        ch,
		Reader:         f,
		FileSize:       int(info.Size()),
		Filename:       filepath.Base(path),
		Title:          title,
		InitialComment: comment,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	c.log.Info().Str("file", file.ID).Str("channel", ch).Msg("file uploaded")
	return nil
}
