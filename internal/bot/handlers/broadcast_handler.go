package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewBroadcastHandler returns a handler for the /broadcast command.
func NewBroadcastHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastHandler{deps}.Handle
}

// broadcastHandler relays the operator's text to the bound group as plain
// text. Requires admin privileges (enforced by middleware).
type broadcastHandler struct {
	deps HandlerDeps
}

func (h broadcastHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "broadcast")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Broadcast handler called with nil Message or From", "update_id", update.ID)
		return
	}

	m := h.deps.Config.Messages
	text := commandPayload(msg.Text)
	if text == "" {
		h.deps.reply(ctx, log, msg, m.BroadcastUsage)
		return
	}

	groupID := h.deps.Engine.GroupID()
	if groupID == 0 {
		h.deps.reply(ctx, log, msg, m.NoGroup)
		return
	}

	if _, err := h.deps.Transport.SendMessage(ctx, groupID, text, false); err != nil {
		log.ErrorContext(ctx, "Broadcast failed", "error", err, "group_id", groupID)
		h.deps.reply(ctx, log, msg, m.BroadcastFailed)
		return
	}

	log.InfoContext(ctx, "Broadcast sent", "group_id", groupID, "length", len(text))
	if msg.Chat.ID != groupID {
		h.deps.reply(ctx, log, msg, m.BroadcastSent)
	}
}
