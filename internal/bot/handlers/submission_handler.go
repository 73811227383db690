package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/collect"
)

// NewSubmissionHandler returns the default handler. Every plain message is
// offered to the engine; the engine decides whether it qualifies.
func NewSubmissionHandler(deps HandlerDeps) bot.HandlerFunc {
	return submissionHandler{deps}.Handle
}

type submissionHandler struct {
	deps HandlerDeps
}

func (h submissionHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	res, err := h.deps.Engine.Submit(ctx, collect.Message{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		UserID:      msg.From.ID,
		DisplayName: displayName(msg.From),
		Text:        msg.Text,
	})
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "Submission reply failed",
			"outcome", res.Outcome.String(), "user_id", msg.From.ID, "error", err)
	}
}
