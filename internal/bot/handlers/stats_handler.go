package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/collect"
	"github.com/edgard/collectbot/internal/state"
)

const recentRounds = 5

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

// statsHandler reports configuration, the live round and archive totals.
// Requires admin privileges (enforced by middleware).
type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Stats handler called with nil Message or From", "update_id", update.ID)
		return
	}

	h.deps.reply(ctx, log, msg, h.render(ctx, time.Now()))
}

func (h statsHandler) render(ctx context.Context, now time.Time) string {
	cfg := h.deps.Config
	snap := h.deps.Engine.Status()
	st := h.deps.State.Snapshot()

	var b strings.Builder
	b.WriteString("📈 Bot statistics\n\n")

	fmt.Fprintf(&b, "⚙️ Capacity %d | Duration %s | Cooldown %s\n",
		cfg.Collect.Capacity, cfg.Collect.Duration, cfg.Collect.Cooldown)
	fmt.Fprintf(&b, "🌏 Timezone %s\n", cfg.Collect.Timezone)

	if snap.GroupID != 0 {
		fmt.Fprintf(&b, "💬 Group %d\n", snap.GroupID)
	} else {
		b.WriteString("💬 Group not bound\n")
	}

	fmt.Fprintf(&b, "🔄 State %s", snap.State)
	if snap.State != collect.Idle {
		fmt.Fprintf(&b, " (round %d, %d/%d, %s left)",
			snap.Round, snap.Participants, snap.Capacity, snap.Remaining.Round(time.Second))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "⏳ Cooldowns tracked %d\n", snap.TrackedCooldowns)

	if last := snap.LastRound; !last.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "🕘 Last round %s: %d participants, %d links\n",
			last.FinishedAt.Format(time.RFC3339), last.ParticipantCount, last.SubmissionCount)
	}

	if times := h.deps.Schedule.Times(); len(times) > 0 {
		next := h.deps.Schedule.NextRuns()
		parts := make([]string, len(times))
		for i, t := range times {
			parts[i] = t
			if run, ok := next[t]; ok {
				parts[i] += " → " + run.Format("Jan 2 15:04")
			}
		}
		fmt.Fprintf(&b, "⏰ Auto collect: %s\n", strings.Join(parts, ", "))
	} else {
		b.WriteString("⏰ Auto collect: off\n")
	}

	if h.deps.Store != nil {
		totals, err := h.deps.Store.Totals(ctx)
		if err != nil {
			h.deps.Logger.WarnContext(ctx, "Failed to load round totals", "error", err)
		} else {
			fmt.Fprintf(&b, "🗄 Archive: %d rounds, %d participants, %d links, %d stopped\n",
				totals.Rounds, totals.Participants, totals.Submissions, totals.StoppedByOperator)
		}

		recent, err := h.deps.Store.RecentRounds(ctx, recentRounds)
		if err != nil {
			h.deps.Logger.WarnContext(ctx, "Failed to load recent rounds", "error", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			loc = time.UTC
		}
		for _, r := range recent {
			fmt.Fprintf(&b, "  • %s %d/%d (%s)\n",
				r.FinishedAt.In(loc).Format("Jan 2 15:04"), r.SubmissionCount, r.ParticipantCount, r.Reason)
		}
	}

	if start := st.BotStartTime; start > 0 {
		fmt.Fprintf(&b, "⏱ Uptime %s\n", uptime(now, start))
	}

	return strings.TrimRight(b.String(), "\n")
}

// uptime renders the time elapsed since the recorded start, to the second.
func uptime(now time.Time, startSeconds float64) string {
	d := now.Sub(state.FromUnixSeconds(startSeconds))
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
