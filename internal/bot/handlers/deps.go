package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/collect"
	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/database"
	"github.com/edgard/collectbot/internal/schedule"
	"github.com/edgard/collectbot/internal/state"
	"github.com/edgard/collectbot/internal/transport"
)

// HandlerDeps provides dependencies for Telegram command handlers.
// Replies go through Transport, so handlers never touch *bot.Bot directly.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Engine    *collect.Engine
	Schedule  *schedule.Registry
	State     *state.Store
	Store     database.Store
	Transport transport.Transport
}

// reply answers msg in its chat. Failures are logged only.
func (d HandlerDeps) reply(ctx context.Context, log *slog.Logger, msg *models.Message, text string) {
	if _, err := d.Transport.Reply(ctx, msg.Chat.ID, msg.ID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
	}
}

// isGroupChat reports whether the chat is a group or supergroup.
func isGroupChat(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}

// commandArgs returns the whitespace separated arguments after the command.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// commandPayload returns everything after the command, keeping inner
// whitespace and newlines.
func commandPayload(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, " \t\n")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+1:])
}

// displayName is the user's @username, falling back to the first name.
func displayName(u *models.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return "?"
}

// bindFromCommand binds the engine to msg's chat when it is a group. It
// returns the reply to send when the command cannot proceed, or "" when a
// group is bound.
func (d HandlerDeps) bindFromCommand(msg *models.Message) (string, error) {
	if isGroupChat(msg.Chat) {
		ok, err := d.Engine.BindGroup(msg.Chat.ID)
		if !ok {
			return d.Config.Messages.GroupMismatch, err
		}
		return "", err
	}
	if d.Engine.GroupID() == 0 {
		return d.Config.Messages.NoGroup, nil
	}
	return "", nil
}
