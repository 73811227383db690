// Package main contains the entrypoint for the tweet link collector bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/bot"
	"github.com/edgard/collectbot/internal/bot/handlers"
	"github.com/edgard/collectbot/internal/bot/tasks"
	"github.com/edgard/collectbot/internal/collect"
	"github.com/edgard/collectbot/internal/config"
	"github.com/edgard/collectbot/internal/database"
	"github.com/edgard/collectbot/internal/logger"
	"github.com/edgard/collectbot/internal/publisher"
	"github.com/edgard/collectbot/internal/schedule"
	"github.com/edgard/collectbot/internal/state"
	"github.com/edgard/collectbot/internal/telegram"
	"github.com/edgard/collectbot/internal/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components and returns an
// exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("Invalid timezone", "timezone", cfg.Collect.Timezone, "error", err)
		return 1
	}

	st, err := state.Open(cfg.State.Path, log)
	if err != nil {
		log.Warn("Continuing with default state", "path", cfg.State.Path, "error", err)
	}
	if err := st.Update(func(s *state.State) { s.BotStartTime = state.UnixSeconds(time.Now()) }); err != nil {
		log.Error("Failed to write state file", "path", cfg.State.Path, "error", err)
		return 1
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// The default handler needs the engine, and the engine needs the bot.
	var onMessage tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(handlers.Recover(log), logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if onMessage != nil {
				onMessage(ctx, b, update)
			}
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	tr := transport.NewClient(tg, log)
	engine, err := collect.NewEngine(collect.Deps{
		Config:    cfg,
		Transport: tr,
		Publisher: publisher.New(tr, cfg.Publisher, cfg.Messages, log),
		State:     st,
		Rounds:    store,
		Logger:    log,
	})
	if err != nil {
		log.Error("Failed to create collection engine", "error", err)
		return 1
	}

	gs, err := bot.NewGocron(loc, log)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	registry := schedule.NewRegistry(gs, st, scheduledStart(engine, log), log)
	restored := registry.RestoreFromConfig(st.Snapshot().AutoTimes)
	log.Info("Restored auto collect times", "count", restored, "timezone", loc.String())

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Engine:    engine,
		Schedule:  registry,
		State:     st,
		Store:     store,
		Transport: tr,
	}
	onMessage = handlers.NewSubmissionHandler(hDeps)

	if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommands(ctx, tg, handlers.BotCommands(cfg.Messages)); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Engine: engine,
		Config: cfg,
	}
	sched := bot.NewScheduler(gs, log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	app := bot.NewBot(log, cfg, tg, sched, engine)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// scheduledStart is the trigger fired by the daily registry.
func scheduledStart(engine *collect.Engine, log *slog.Logger) schedule.Trigger {
	return func(ctx context.Context) error {
		res, err := engine.Start(ctx)
		switch res.Outcome {
		case collect.StartNoGroup:
			log.WarnContext(ctx, "Scheduled collection skipped, no group bound")
			return nil
		case collect.StartAlreadyActive:
			log.InfoContext(ctx, "Scheduled collection skipped, a round is already running")
			return nil
		}
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "Scheduled collection started", "round", res.Round, "ends_at", res.EndsAt)
		return nil
	}
}
