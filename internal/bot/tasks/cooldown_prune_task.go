package tasks

import (
	"context"
)

// newCooldownPruneTask drops expired cooldown entries so the limiter does
// not grow with every user ever seen.
func newCooldownPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cooldown_prune")

	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed := deps.Engine.PruneCooldowns()
		log.DebugContext(ctx, "Pruned expired cooldowns", "removed", removed)
		return nil
	}
}
