package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/collect"
	errs "github.com/edgard/collectbot/internal/errors"
)

// NewStartCollectHandler returns a handler for the /startcollect command.
func NewStartCollectHandler(deps HandlerDeps) bot.HandlerFunc {
	return startCollectHandler{deps}.Handle
}

// startCollectHandler binds the group on first use and opens a round.
// Requires admin privileges (enforced by middleware).
type startCollectHandler struct {
	deps HandlerDeps
}

func (h startCollectHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "startcollect")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Startcollect handler called with nil Message or From", "update_id", update.ID)
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

	res, err := h.deps.Engine.Start(ctx)
	switch res.Outcome {
	case collect.StartAlreadyActive:
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.AlreadyActive)
		return
	case collect.StartNoGroup:
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.NoGroup)
		return
	}

	log.InfoContext(ctx, "Round started by operator", "round", res.Round, "ends_at", res.EndsAt)
	switch {
	case err == nil:
	case errs.IsPin(err):
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.StartPinFailed)
	case errs.IsDelivery(err):
		log.ErrorContext(ctx, "Announcement not delivered", "error", err)
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.StartDelivery)
	default:
		log.ErrorContext(ctx, "Unexpected error starting round", "error", err)
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.GeneralError)
	}
}

// NewStopCollectHandler returns a handler for the /stopcollect command.
func NewStopCollectHandler(deps HandlerDeps) bot.HandlerFunc {
	return stopCollectHandler{deps}.Handle
}

// stopCollectHandler ends the running round on operator request.
// Requires admin privileges (enforced by middleware).
type stopCollectHandler struct {
	deps HandlerDeps
}

func (h stopCollectHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stopcollect")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Stopcollect handler called with nil Message or From", "update_id", update.ID)
		return
	}

	stopped, err := h.deps.Engine.Stop(ctx)
	if !stopped {
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.NotRunning)
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "Round stopped but summary not delivered", "error", err)
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.GeneralError)
		return
	}
	log.InfoContext(ctx, "Round stopped by operator", "user_id", msg.From.ID)
}
