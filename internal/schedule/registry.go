// Package schedule keeps the daily auto collect times. Each time is a
// gocron daily job that triggers a new round; the list survives restarts
// through the state file.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/logger"
	"github.com/edgard/collectbot/internal/state"
)

var (
	ErrInvalidTime   = errs.NewValidationError("time must be HH:MM with hour 0-23 and minute 0-59", nil)
	ErrAlreadyExists = errs.NewValidationError("time already scheduled", nil)
	ErrNotFound      = errs.NewValidationError("time not scheduled", nil)
)

// Trigger starts a round. It runs on a gocron goroutine.
type Trigger func(ctx context.Context) error

type entry struct {
	key string
	job gocron.Job
}

// Registry owns the auto collect jobs on a shared gocron scheduler.
type Registry struct {
	scheduler gocron.Scheduler
	store     *state.Store
	trigger   Trigger
	logger    *slog.Logger

	mu      sync.Mutex
	entries []entry
}

// NewRegistry creates an empty Registry. Jobs use the scheduler's location.
func NewRegistry(s gocron.Scheduler, store *state.Store, trigger Trigger, log *slog.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	return &Registry{
		scheduler: s,
		store:     store,
		trigger:   trigger,
		logger:    log.With("component", "schedule"),
	}
}

// Key formats a time of day as "HH:MM".
func Key(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ParseTime parses "H:MM" or "HH:MM".
func ParseTime(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, 0, fmt.Errorf("parse %q: %w", s, ErrInvalidTime)
	}
	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)
	if herr != nil || merr != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, ErrInvalidTime)
	}
	if err := validate(hour, minute); err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return hour, minute, nil
}

func validate(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ErrInvalidTime
	}
	return nil
}

// Add schedules a daily round at hour:minute and persists the list.
func (r *Registry) Add(hour, minute int) error {
	if err := validate(hour, minute); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key(hour, minute)
	if r.indexLocked(key) >= 0 {
		return ErrAlreadyExists
	}
	if err := r.registerLocked(hour, minute); err != nil {
		return err
	}

	r.logger.Info("Auto collect added", "time", key)
	r.persistLocked()
	return nil
}

// Remove cancels the job at hour:minute and persists the list.
func (r *Registry) Remove(hour, minute int) error {
	key := Key(hour, minute)

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(key)
	if idx < 0 {
		return ErrNotFound
	}
	r.removeJobLocked(r.entries[idx])
	r.entries = slices.Delete(r.entries, idx, idx+1)

	r.logger.Info("Auto collect removed", "time", key)
	r.persistLocked()
	return nil
}

// RemoveAll cancels every job, clears the list and persists it.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		r.removeJobLocked(e)
	}
	removed := len(r.entries)
	r.entries = nil

	r.logger.Info("All auto collects removed", "count", removed)
	r.persistLocked()
}

// RestoreFromConfig recreates the jobs of persisted times. Malformed and
// duplicate entries are logged and skipped. Nothing is persisted.
func (r *Registry) RestoreFromConfig(times []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, t := range times {
		hour, minute, err := ParseTime(t)
		if err != nil {
			r.logger.Warn("Skipping malformed auto collect time", "time", t, "error", err)
			continue
		}
		if r.indexLocked(Key(hour, minute)) >= 0 {
			r.logger.Warn("Skipping duplicate auto collect time", "time", t)
			continue
		}
		if err := r.registerLocked(hour, minute); err != nil {
			r.logger.Error("Failed to restore auto collect time", "time", t, "error", err)
			continue
		}
		restored++
	}

	r.logger.Info("Auto collect times restored", "restored", restored, "persisted", len(times))
	return restored
}

// Times returns the scheduled times in insertion order.
func (r *Registry) Times() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timesLocked()
}

// NextRuns returns the next run of every scheduled time. Times whose next
// run is unknown, for instance before the scheduler started, are omitted.
func (r *Registry) NextRuns() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make(map[string]time.Time, len(r.entries))
	for _, e := range r.entries {
		next, err := e.job.NextRun()
		if err != nil || next.IsZero() {
			continue
		}
		runs[e.key] = next
	}
	return runs
}

func (r *Registry) registerLocked(hour, minute int) error {
	key := Key(hour, minute)
	job, err := r.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(r.fire, context.Background(), key),
		gocron.WithName("autocollect "+key),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	r.entries = append(r.entries, entry{key: key, job: job})
	return nil
}

func (r *Registry) removeJobLocked(e entry) {
	if err := r.scheduler.RemoveJob(e.job.ID()); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		r.logger.Warn("Failed to remove auto collect job", "time", e.key, "error", err)
	}
}

func (r *Registry) indexLocked(key string) int {
	return slices.IndexFunc(r.entries, func(e entry) bool { return e.key == key })
}

func (r *Registry) timesLocked() []string {
	times := make([]string, len(r.entries))
	for i, e := range r.entries {
		times[i] = e.key
	}
	return times
}

// fire runs the trigger for one scheduled time. Failures are logged; the
// job stays scheduled.
func (r *Registry) fire(ctx context.Context, key string) {
	r.logger.InfoContext(ctx, "Auto collect triggered", "time", key)
	start := time.Now()
	if err := r.trigger(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Auto collect trigger failed", "time", key, "error", err)
		return
	}
	r.logger.DebugContext(ctx, "Auto collect trigger done", "time", key, "duration", time.Since(start))
}

// persistLocked writes the list while r.mu is held so concurrent edits reach
// the state file in the order they were applied.
func (r *Registry) persistLocked() {
	if r.store == nil {
		return
	}
	times := r.timesLocked()
	if err := r.store.Update(func(st *state.State) { st.AutoTimes = times }); err != nil {
		r.logger.Error("Failed to persist auto collect times", "error", err)
	}
}
