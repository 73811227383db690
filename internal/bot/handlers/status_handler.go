package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/collect"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

// statusHandler reports the round state. It only answers inside the bound
// group.
type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !isGroupChat(msg.Chat) || msg.Chat.ID != h.deps.Engine.GroupID() {
		log.DebugContext(ctx, "Ignoring status outside the bound group", "chat_id", msg.Chat.ID)
		return
	}

	h.deps.reply(ctx, log, msg, h.render(h.deps.Engine.Status(), h.deps.Schedule.Times()))
}

func (h statusHandler) render(snap collect.Snapshot, times []string) string {
	m := h.deps.Config.Messages

	if snap.State != collect.Idle {
		remaining := snap.Remaining.Truncate(time.Second)
		return fmt.Sprintf(m.StatusActive,
			snap.Participants, snap.Capacity,
			int(remaining/time.Minute), int((remaining%time.Minute)/time.Second))
	}

	if len(times) == 0 {
		return m.StatusIdle
	}

	lines := []string{fmt.Sprintf(m.StatusScheduled, strings.Join(times, ", "))}
	if last := snap.LastRound; !last.FinishedAt.IsZero() {
		lines = append(lines, fmt.Sprintf(m.StatusLastRound,
			h.formatTime(last.FinishedAt), last.ParticipantCount, last.SubmissionCount))
	}
	return strings.Join(lines, "\n")
}

// formatTime renders t in the configured schedule timezone.
func (h statusHandler) formatTime(t time.Time) string {
	if loc, err := h.deps.Config.Location(); err == nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04")
}
