package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/schedule"
)

// NewAutoCollectHandler returns a handler for the /autocollect command.
func NewAutoCollectHandler(deps HandlerDeps) bot.HandlerFunc {
	return autoCollectHandler{deps}.Handle
}

// autoCollectHandler manages the daily schedule:
//
//	/autocollect HH:MM
//	/autocollect remove HH:MM
//	/autocollect off
//	/autocollect list
//
// Requires admin privileges (enforced by middleware).
type autoCollectHandler struct {
	deps HandlerDeps
}

func (h autoCollectHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "autocollect")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Autocollect handler called with nil Message or From", "update_id", update.ID)
		return
	}

	m := h.deps.Config.Messages
	args := commandArgs(msg.Text)
	if len(args) == 0 {
		h.deps.reply(ctx, log, msg, m.AutoUsage)
		return
	}

	switch strings.ToLower(args[0]) {
	case "list":
		h.deps.reply(ctx, log, msg, h.list())

	case "off":
		h.deps.Schedule.RemoveAll()
		h.deps.reply(ctx, log, msg, m.AutoOff)

	case "remove":
		if len(args) != 2 {
			h.deps.reply(ctx, log, msg, m.AutoUsage)
			return
		}
		hour, minute, err := schedule.ParseTime(args[1])
		if err == nil {
			err = h.deps.Schedule.Remove(hour, minute)
		}
		if err != nil {
			h.deps.reply(ctx, log, msg, h.errorText(ctx, log, err))
			return
		}
		h.deps.reply(ctx, log, msg, fmt.Sprintf(m.AutoRemoved, schedule.Key(hour, minute)))

	default:
		if len(args) != 1 {
			h.deps.reply(ctx, log, msg, m.AutoUsage)
			return
		}
		hour, minute, err := schedule.ParseTime(args[0])
		if err != nil {
			h.deps.reply(ctx, log, msg, m.AutoInvalid)
			return
		}

		refusal, err := h.deps.bindFromCommand(msg)
		if err != nil {
			log.ErrorContext(ctx, "Failed to persist bound group", "error", err)
		}
		if refusal != "" {
			h.deps.reply(ctx, log, msg, refusal)
			return
		}

		if err := h.deps.Schedule.Add(hour, minute); err != nil {
			h.deps.reply(ctx, log, msg, h.errorText(ctx, log, err))
			return
		}
		h.deps.reply(ctx, log, msg, fmt.Sprintf(m.AutoAdded, schedule.Key(hour, minute)))
	}
}

func (h autoCollectHandler) list() string {
	times := h.deps.Schedule.Times()
	if len(times) == 0 {
		return h.deps.Config.Messages.AutoEmpty
	}

	next := h.deps.Schedule.NextRuns()
	loc, _ := h.deps.Config.Location()

	lines := make([]string, len(times))
	for i, t := range times {
		lines[i] = "• " + t
		if run, ok := next[t]; ok && loc != nil {
			lines[i] += " (next " + run.In(loc).Format("Jan 2 15:04") + ")"
		}
	}
	return fmt.Sprintf(h.deps.Config.Messages.AutoList, strings.Join(lines, "\n"))
}

func (h autoCollectHandler) errorText(ctx context.Context, log *slog.Logger, err error) string {
	m := h.deps.Config.Messages
	switch {
	case errors.Is(err, schedule.ErrAlreadyExists):
		return m.AutoExists
	case errors.Is(err, schedule.ErrNotFound):
		return m.AutoNotFound
	case errors.Is(err, schedule.ErrInvalidTime):
		return m.AutoInvalid
	default:
		log.ErrorContext(ctx, "Schedule operation failed", "error", err)
		return m.GeneralError
	}
}
