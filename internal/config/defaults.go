package config

import "time"

// Default values for configuration
const (
	DefaultCapacity     = 20
	DefaultDuration     = time.Hour
	DefaultCooldown     = 30 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultTimezone     = "Asia/Ho_Chi_Minh"
	DefaultLinkPattern  = `(?i)https?://(?:www\.)?(?:x|twitter)\.com/\w+/status/\d+`

	DefaultChunkThreshold = 4000 // stays below Telegram's 4096 limit
	DefaultChunkSize      = 10
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultSendTimeout    = 15 * time.Second

	DefaultStatePath = "bot_state.json"
	DefaultDBPath    = "storage.db"

	DefaultLogLevel = "info"

	DefaultMaintenanceSchedule = "0 30 4 * * *"
	DefaultPruneSchedule       = "0 */15 * * * *"
)

// DefaultMessages holds the stock user-visible texts.
var DefaultMessages = MessagesConfig{
	Welcome: "🤖 Tweet Link Collector\n\n" +
		"📌 Collects tweet links in the group\n" +
		"⏱ Runs manually or automatically at fixed times\n\n" +
		"📊 /status – show current state\n",
	HelpAdmin: "\n👑 Admin:\n" +
		"/startcollect\n" +
		"/stopcollect\n" +
		"/autocollect HH:MM\n" +
		"/autocollect remove HH:MM\n" +
		"/autocollect off\n" +
		"/autocollect list\n" +
		"/stats\n" +
		"/broadcast <text>\n" +
		"/export\n",
	Unauthorized: "🚫 Access denied.",
	GeneralError: "❌ An error occurred. Please try again later.",

	Announcement: "🚀 <b>TWEET LINK COLLECTION STARTED</b>\n\n" +
		"⏱ %s | 👥 %d people\n" +
		"📎 Send a valid tweet link!",
	Accepted:         "✅ Recorded (%d/%d)",
	Cooldown:         "⏳ Slow down, try again in %ds.",
	AlreadySubmitted: "⚠️ You already submitted a link in this round.",

	SummaryHeader: "📊 <b>TWEET LINK SUMMARY</b>\n👥 %d participants | 🔗 %d links",
	NoResults:     "⛔ No links were submitted.",
	Stopped:       "⛔ Collection was stopped by the admin.",

	AlreadyActive:  "⚠️ A collection is already running.",
	NotRunning:     "⚠️ No collection is running.",
	NoGroup:        "⚠️ No group is bound yet. Run /startcollect in the group first.",
	GroupMismatch:  "⚠️ The bot is bound to another group.",
	StartDelivery:  "❌ The announcement could not be delivered. The round is running anyway.",
	StartPinFailed: "⚠️ The announcement could not be pinned.",

	StatusActive:    "📊 Collecting\n👥 %d/%d\n⏱ %dm %ds",
	StatusScheduled: "⏰ Auto collect every day at: %s",
	StatusLastRound: "🕘 Last round %s: %d participants, %d links",
	StatusIdle:      "📴 No collection running.",

	AutoUsage:    "❌ /autocollect HH:MM | remove HH:MM | off | list",
	AutoAdded:    "✅ Auto collect added at %s",
	AutoRemoved:  "🗑 Auto collect at %s removed",
	AutoOff:      "🛑 All auto collects disabled",
	AutoExists:   "⚠️ This time already exists",
	AutoNotFound: "⚠️ This time was not found",
	AutoInvalid:  "❌ Invalid format, use HH:MM",
	AutoList:     "⏰ Auto collect times:\n%s",
	AutoEmpty:    "📭 No auto collect times configured.",

	BroadcastUsage:  "❌ /broadcast <text>",
	BroadcastSent:   "📣 Broadcast sent.",
	BroadcastFailed: "❌ Broadcast could not be delivered.",

	ExportEmpty:  "📭 Nothing to export in the current round.",
	ExportFailed: "❌ Export failed.",

	CmdStart:        "Show usage",
	CmdHelp:         "Show usage",
	CmdStatus:       "Show collection status",
	CmdStartCollect: "Start a collection round (admin only)",
	CmdStopCollect:  "Stop the running round (admin only)",
	CmdAutoCollect:  "Manage daily auto collect times (admin only)",
	CmdStats:        "Show bot statistics (admin only)",
	CmdBroadcast:    "Send a message to the group (admin only)",
	CmdExport:       "Export current submissions (admin only)",
}

// Default builds a Config populated with every default value. Required
// fields without defaults (token, admin id) are left empty.
func Default() *Config {
	return &Config{
		Collect: CollectConfig{
			Capacity:     DefaultCapacity,
			Duration:     DefaultDuration,
			Cooldown:     DefaultCooldown,
			PollInterval: DefaultPollInterval,
			Timezone:     DefaultTimezone,
			LinkPattern:  DefaultLinkPattern,
		},
		Publisher: PublisherConfig{
			ChunkThreshold: DefaultChunkThreshold,
			ChunkSize:      DefaultChunkSize,
			MaxAttempts:    DefaultMaxAttempts,
			RetryBaseDelay: DefaultRetryBaseDelay,
			SendTimeout:    DefaultSendTimeout,
		},
		State:    StateConfig{Path: DefaultStatePath},
		Database: DatabaseConfig{Path: DefaultDBPath},
		Logger:   LoggerConfig{Level: DefaultLogLevel},
		Scheduler: SchedulerConfig{
			Tasks: map[string]TaskConfig{
				"sql_maintenance": {Enabled: true, Schedule: DefaultMaintenanceSchedule},
				"cooldown_prune":  {Enabled: true, Schedule: DefaultPruneSchedule},
			},
		},
		Messages: DefaultMessages,
	}
}
