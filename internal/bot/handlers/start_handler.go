package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return usageHandler{deps: deps, name: "start"}.Handle
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return usageHandler{deps: deps, name: "help"}.Handle
}

// usageHandler answers /start and /help with the usage text. The admin
// section is only shown to the operator.
type usageHandler struct {
	deps HandlerDeps
	name string
}

func (h usageHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Usage handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling usage command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	text := h.deps.Config.Messages.Welcome
	if h.deps.Config.IsOperator(update.Message.From.ID) {
		text += h.deps.Config.Messages.HelpAdmin
	}
	if info := h.deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
		text = strings.ReplaceAll(text, "@botname", "@"+info.Username)
	}
	h.deps.reply(ctx, log, update.Message, text)
}
