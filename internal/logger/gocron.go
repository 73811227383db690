package logger

import (
	"errors"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger forwards gocron's internal logging to slog.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger adapts log to the gocron.Logger interface. Scheduler
// internals are noisy, so Info is demoted to Debug.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = Discard()
	}
	return &gocronLogger{log: log.With("component", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) {
	l.log.Debug(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Info(msg string, args ...any) {
	l.log.Debug(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Warn(msg string, args ...any) {
	l.log.Warn(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Error(msg string, args ...any) {
	l.log.Error(msg, schedulerArgs(args)...)
}

// schedulerArgs pairs gocron's variadic arguments into key/value attributes
// and tags well-known scheduler errors.
func schedulerArgs(args []any) []any {
	out := make([]any, 0, len(args)+2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, "value", args[i])
			break
		}

		key, ok := args[i].(string)
		if !ok {
			key = "arg"
		}
		val := args[i+1]

		if err, isErr := val.(error); isErr {
			switch {
			case errors.Is(err, gocron.ErrJobNotFound):
				out = append(out, "error_kind", "job_not_found")
			case errors.Is(err, gocron.ErrStopSchedulerTimedOut):
				out = append(out, "error_kind", "shutdown_timeout")
			}
		}
		out = append(out, key, val)
	}
	return out
}
