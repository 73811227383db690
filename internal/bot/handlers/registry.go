package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/config"
)

// RegisteredHandler represents a command handler with its description and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns every bot command keyed by its slash name.
// Operator commands are wrapped with AdminOnly.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	command := func(name string, h tgbot.HandlerFunc, mw []tgbot.Middleware) {
		handlers["/"+name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}

	command("start", NewStartHandler(deps), nil)
	command("help", NewHelpHandler(deps), nil)
	command("status", NewStatusHandler(deps), nil)

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	command("startcollect", NewStartCollectHandler(deps), adminMiddleware)
	command("stopcollect", NewStopCollectHandler(deps), adminMiddleware)
	command("autocollect", NewAutoCollectHandler(deps), adminMiddleware)
	command("stats", NewStatsHandler(deps), adminMiddleware)
	command("broadcast", NewBroadcastHandler(deps), adminMiddleware)
	command("export", NewExportHandler(deps), adminMiddleware)

	return handlers
}

// BotCommands lists the commands shown in the Telegram command menu.
// Commands with an empty description are left out.
func BotCommands(m config.MessagesConfig) []models.BotCommand {
	all := []models.BotCommand{
		{Command: "start", Description: m.CmdStart},
		{Command: "help", Description: m.CmdHelp},
		{Command: "status", Description: m.CmdStatus},
		{Command: "startcollect", Description: m.CmdStartCollect},
		{Command: "stopcollect", Description: m.CmdStopCollect},
		{Command: "autocollect", Description: m.CmdAutoCollect},
		{Command: "stats", Description: m.CmdStats},
		{Command: "broadcast", Description: m.CmdBroadcast},
		{Command: "export", Description: m.CmdExport},
	}

	cmds := all[:0]
	for _, c := range all {
		if c.Description != "" {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
