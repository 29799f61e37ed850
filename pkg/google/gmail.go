package google

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/gmail/v1"

	"github.com/harrisonrobin/morningbrief/pkg/model"
)

const (
	noSubject = "(No subject)"
	// broadQuery is tried once when the configured query matches nothing, so
	// the logs show whether the mailbox is reachable at all.
	broadQuery = "newer_than:7d"
	// listFactor over-fetches messages so enough threads survive dedupe.
	listFactor = 10
)

// GmailClient reads the authorised user's mailbox.
type GmailClient struct {
	srv *gmail.Service
	log zerolog.Logger
}

func NewGmailClient(srv *gmail.Service, log zerolog.Logger) *GmailClient {
	return &GmailClient{srv: srv, log: log}
}

// Important returns up to limit threads matching query, one message per thread,
// newest first. Threads from senders are preferred; when none match, all
// threads are used.
func (c *GmailClient) Important(ctx context.Context, query string, senders []string, limit int) ([]model.Email, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := c.list(ctx, query, limit*listFactor)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("messages", len(ids)).Str("query", query).Msg("gmail matched")
	if len(ids) == 0 {
		c.log.Warn().Str("query", broadQuery).Msg("gmail returned no messages, retrying with broader query")
		if ids, err = c.list(ctx, broadQuery, limit*listFactor); err != nil {
			return nil, err
		}
	}

	emails := make([]model.Email, 0, len(ids))
	for _, id := range ids {
		msg, err := c.srv.Users.Messages.Get("me", id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			c.log.Warn().Err(err).Str("message", id).Msg("failed to fetch message")
			continue
		}
		emails = append(emails, toEmail(msg))
	}

	threads := latestPerThread(emails)
	c.log.Info().Int("threads", len(threads)).Int("messages", len(emails)).Msg("gmail threads after dedupe")

	picked := fromSenders(threads, senders)
	if len(picked) == 0 {
		if len(senders) > 0 {
			c.log.Info().Int("threads", len(threads)).Msg("no thread from important senders, using all")
		}
		picked = threads
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].InternalDate > picked[j].InternalDate })
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked, nil
}

func (c *GmailClient) list(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := c.srv.Users.Messages.List("me").Q(query).MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages for %q: %w", query, err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func toEmail(msg *gmail.Message) model.Email {
	e := model.Email{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Snippet:      strings.TrimSpace(msg.Snippet),
		InternalDate: msg.InternalDate,
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				e.FromName, e.FromEmail = parseFrom(h.Value)
			case "subject":
				e.Subject = h.Value
			case "date":
				e.Date = h.Value
			}
		}
	}
	if e.Subject == "" {
		e.Subject = noSubject
	}
	return e
}

// parseFrom splits a From header into display name and address.
func parseFrom(v string) (string, string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(v); err == nil {
		return addr.Name, addr.Address
	}
	lt, gt := strings.Index(v, "<"), strings.LastIndex(v, ">")
	if lt >= 0 && gt > lt {
		name := strings.Trim(strings.TrimSpace(v[:lt]), `"`)
		return name, strings.TrimSpace(v[lt+1 : gt])
	}
	return "", v
}

// latestPerThread keeps the newest message of every thread, in first-seen
// thread order.
func latestPerThread(emails []model.Email) []model.Email {
	idx := make(map[string]int)
	var out []model.Email
	for _, e := range emails {
		key := e.ThreadID
		if key == "" {
			key = e.ID
		}
		if i, ok := idx[key]; ok {
			if e.InternalDate > out[i].InternalDate {
				out[i] = e
			}
			continue
		}
		idx[key] = len(out)
		out = append(out, e)
	}
	return out
}

func fromSenders(emails []model.Email, senders []string) []model.Email {
	if len(senders) == 0 {
		return nil
	}
	want := make(map[string]bool, len(senders))
	for _, s := range senders {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out []model.Email
	for _, e := range emails {
		if want[strings.ToLower(e.FromEmail)] {
			out = append(out, e)
		}
	}
	return out
}
