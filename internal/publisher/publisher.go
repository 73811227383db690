// Package publisher formats round summaries and delivers them to the group.
// Long summaries are split into chunks; every send is retried, first with
// HTML formatting and then as plain text.
package publisher

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"

	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/logger"
	"github.com/edgard/collectbot/internal/transport"
)

// Submission is one accepted entry of a round. DisplayName is already
// HTML-escaped; RawText is the message as the participant sent it.
type Submission struct {
	Ordinal     int    `json:"ordinal"`
	DisplayName string `json:"display_name"`
	RawText     string `json:"raw_text"`
}

// Render formats the entry as it appears in the summary. RawText is escaped
// so the participant's text survives both HTML and plain text delivery.
func (s Submission) Render() string {
	return fmt.Sprintf("%d. %s\n%s", s.Ordinal, s.DisplayName, html.EscapeString(s.RawText))
}

var tagPattern = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)

// PlainText strips HTML tags and unescapes entities.
func PlainText(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

// Publisher sends summaries and notices through a Transport.
type Publisher struct {
	transport transport.Transport
	cfg       config.PublisherConfig
	messages  config.MessagesConfig
	logger    *slog.Logger
}

// New creates a Publisher.
func New(t transport.Transport, cfg config.PublisherConfig, messages config.MessagesConfig, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	return &Publisher{
		transport: t,
		cfg:       cfg,
		messages:  messages,
		logger:    log.With("component", "publisher"),
	}
}

// PublishSummary sends the round summary to chatID and returns the id of the
// lead message, the one to pin. With no submissions the "no results" text is
// sent instead. ok is false when the lead message could not be delivered.
func (p *Publisher) PublishSummary(ctx context.Context, chatID int64, submissions []Submission, participantCount int) (int, bool) {
	if len(submissions) == 0 {
		return p.SendSafely(ctx, chatID, p.messages.NoResults)
	}

	header := fmt.Sprintf(p.messages.SummaryHeader, participantCount, len(submissions))
	chunks := p.Chunks(header, submissions)

	leadID, ok := p.SendSafely(ctx, chatID, chunks[0])
	if !ok {
		p.logger.ErrorContext(ctx, "Summary lead message not delivered", "chat_id", chatID, "chunks", len(chunks))
	}

	for i, chunk := range chunks[1:] {
		if _, sent := p.SendSafely(ctx, chatID, chunk); !sent {
			p.logger.ErrorContext(ctx, "Summary follow-up not delivered", "chat_id", chatID, "chunk", i+2, "chunks", len(chunks))
		}
	}

	p.logger.InfoContext(ctx, "Summary published",
		"chat_id", chatID,
		"submissions", len(submissions),
		"chunks", len(chunks),
		"lead_message_id", leadID)
	return leadID, ok
}

// Chunks renders the summary messages. The first element always carries the
// header. The text is split into groups of ChunkSize entries only when the
// whole summary exceeds ChunkThreshold characters.
func (p *Publisher) Chunks(header string, submissions []Submission) []string {
	rendered := make([]string, len(submissions))
	for i, s := range submissions {
		rendered[i] = s.Render()
	}

	full := header + "\n\n" + strings.Join(rendered, "\n\n")
	if utf8.RuneCountInString(full) <= p.cfg.ChunkThreshold {
		return []string{full}
	}

	var chunks []string
	for start := 0; start < len(rendered); start += p.cfg.ChunkSize {
		end := min(start+p.cfg.ChunkSize, len(rendered))
		body := strings.Join(rendered[start:end], "\n\n")
		if start == 0 {
			body = header + "\n\n" + body
		}
		chunks = append(chunks, body)
	}
	return chunks
}

// Notice sends an operator notice to the group with the same retry policy
// as the summary.
func (p *Publisher) Notice(ctx context.Context, chatID int64, text string) (int, bool) {
	return p.SendSafely(ctx, chatID, text)
}

// SendSafely sends text with up to MaxAttempts tries. The first attempt uses
// HTML formatting, later attempts send plain text. The wait before retry n
// is RetryBaseDelay*n. Failures are logged and reported through ok.
func (p *Publisher) SendSafely(ctx context.Context, chatID int64, text string) (int, bool) {
	var (
		messageID int
		attempt   int
	)
	plain := PlainText(text)

	err := retry.Do(
		func() error {
			attempt++
			formatted := attempt == 1
			body := text
			if !formatted {
				body = plain
			}

			sendCtx, cancel := p.sendContext(ctx)
			defer cancel()

			id, err := p.transport.SendMessage(sendCtx, chatID, body, formatted)
			if err != nil {
				p.logger.DebugContext(ctx, "Send attempt failed",
					"chat_id", chatID,
					"attempt", attempt,
					"formatted", formatted,
					"error", err)
				return err
			}
			messageID = id
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.cfg.MaxAttempts)),
		retry.Delay(p.cfg.RetryBaseDelay),
		// retry-go passes the number of attempts made so far.
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.cfg.RetryBaseDelay * time.Duration(n)
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 >= p.cfg.MaxAttempts {
				return
			}
			p.logger.WarnContext(ctx, "Retrying send",
				"chat_id", chatID,
				"attempt", n+2,
				"max_attempts", p.cfg.MaxAttempts,
				"error", err)
		}),
	)
	if err != nil {
		p.logger.ErrorContext(ctx, "Message not delivered after retries",
			"chat_id", chatID,
			"attempts", attempt,
			"error", err)
		return 0, false
	}
	return messageID, true
}

func (p *Publisher) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.SendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.SendTimeout)
}
