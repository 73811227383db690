// Package tasks implements the maintenance jobs run by the bot scheduler.
package tasks

import (
	"log/slog"

	"github.com/edgard/collectbot/internal/collect"
	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/database"
)

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Engine *collect.Engine
	Config *config.Config
}
