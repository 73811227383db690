package collect

import (
	"context"
	"time"
)

// watch polls the termination condition of one round and finishes it when
// due. It exits when the round ends through another path, when the round
// counter moves on, or when ctx is cancelled.
func (e *Engine) watch(ctx context.Context, round uint64) {
	defer e.watchers.Done()

	interval := e.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := e.logger.With("round", round)
	log.Debug("Watcher started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			log.Debug("Watcher stopped")
			return
		case <-ticker.C:
		}

		job, live := e.checkRound(round)
		if !live {
			log.Debug("Round no longer active, watcher exiting")
			return
		}
		if job != nil {
			log.Info("Termination condition met", "reason", job.reason)
			e.completeFinish(ctx, job)
			return
		}
	}
}

// checkRound returns live=false when round is no longer the active one,
// and a job when the round is due and this call won the transition.
func (e *Engine) checkRound(round uint64) (*finishJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.state != Active || e.s.round != round {
		return nil, false
	}
	due, reason := e.s.due(e.now(), e.cfg.Capacity)
	if !due {
		return nil, true
	}
	return e.beginFinishLocked(reason), true
}
