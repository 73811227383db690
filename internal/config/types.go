// Package config manages application configuration from the config file,
// BOT_* environment variables, and default values.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Collect   CollectConfig   `mapstructure:"collect"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	State     StateConfig     `mapstructure:"state"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// TelegramConfig holds the bot token and the operator identity.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// CollectConfig controls the collection rounds.
type CollectConfig struct {
	Capacity     int           `mapstructure:"capacity"      validate:"min=1,max=1000"`
	Duration     time.Duration `mapstructure:"duration"      validate:"min=1s,max=24h"`
	Cooldown     time.Duration `mapstructure:"cooldown"      validate:"min=0,max=24h"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=10ms,max=1m"`
	Timezone     string        `mapstructure:"timezone"      validate:"required,timezone"`
	LinkPattern  string        `mapstructure:"link_pattern"  validate:"required"`
}

// PublisherConfig controls summary chunking and send retries.
type PublisherConfig struct {
	ChunkThreshold int           `mapstructure:"chunk_threshold"  validate:"min=100,max=4096"`
	ChunkSize      int           `mapstructure:"chunk_size"       validate:"min=1,max=100"`
	MaxAttempts    int           `mapstructure:"max_attempts"     validate:"min=1,max=10"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"min=0,max=1m"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"     validate:"min=1s,max=2m"`
}

// StateConfig locates the persisted state file.
type StateConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DatabaseConfig locates the round history database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SchedulerConfig lists the maintenance tasks run by the scheduler.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single maintenance task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible text. Texts sent with HTML
// formatting are marked as such; fmt verbs are documented per field.
type MessagesConfig struct {
	Welcome      string `mapstructure:"welcome"       validate:"required"`
	HelpAdmin    string `mapstructure:"help_admin"    validate:"required"`
	Unauthorized string `mapstructure:"unauthorized"  validate:"required"`
	GeneralError string `mapstructure:"general_error" validate:"required"`

	// Announcement is HTML; %s duration, %d capacity.
	Announcement string `mapstructure:"announcement" validate:"required"`
	// Accepted: %d count, %d capacity.
	Accepted string `mapstructure:"accepted" validate:"required"`
	// Cooldown: %d seconds left.
	Cooldown         string `mapstructure:"cooldown"          validate:"required"`
	AlreadySubmitted string `mapstructure:"already_submitted" validate:"required"`

	// SummaryHeader is HTML; %d participants, %d links.
	SummaryHeader string `mapstructure:"summary_header" validate:"required"`
	NoResults     string `mapstructure:"no_results"     validate:"required"`
	Stopped       string `mapstructure:"stopped"        validate:"required"`

	AlreadyActive  string `mapstructure:"already_active"  validate:"required"`
	NotRunning     string `mapstructure:"not_running"     validate:"required"`
	NoGroup        string `mapstructure:"no_group"        validate:"required"`
	GroupMismatch  string `mapstructure:"group_mismatch"  validate:"required"`
	StartDelivery  string `mapstructure:"start_delivery"  validate:"required"`
	StartPinFailed string `mapstructure:"start_pin_failed" validate:"required"`

	// StatusActive: %d count, %d capacity, %d minutes, %d seconds.
	StatusActive string `mapstructure:"status_active" validate:"required"`
	// StatusScheduled: %s times.
	StatusScheduled string `mapstructure:"status_scheduled" validate:"required"`
	// StatusLastRound: %s finished at, %d participants, %d links.
	StatusLastRound string `mapstructure:"status_last_round" validate:"required"`
	StatusIdle      string `mapstructure:"status_idle"       validate:"required"`

	AutoUsage    string `mapstructure:"auto_usage"     validate:"required"`
	AutoAdded    string `mapstructure:"auto_added"     validate:"required"`
	AutoRemoved  string `mapstructure:"auto_removed"   validate:"required"`
	AutoOff      string `mapstructure:"auto_off"       validate:"required"`
	AutoExists   string `mapstructure:"auto_exists"    validate:"required"`
	AutoNotFound string `mapstructure:"auto_not_found" validate:"required"`
	AutoInvalid  string `mapstructure:"auto_invalid"   validate:"required"`
	AutoList     string `mapstructure:"auto_list"      validate:"required"`
	AutoEmpty    string `mapstructure:"auto_empty"     validate:"required"`

	BroadcastUsage  string `mapstructure:"broadcast_usage"  validate:"required"`
	BroadcastSent   string `mapstructure:"broadcast_sent"   validate:"required"`
	BroadcastFailed string `mapstructure:"broadcast_failed" validate:"required"`

	ExportEmpty  string `mapstructure:"export_empty"  validate:"required"`
	ExportFailed string `mapstructure:"export_failed" validate:"required"`

	CmdStart        string `mapstructure:"cmd_start"`
	CmdHelp         string `mapstructure:"cmd_help"`
	CmdStatus       string `mapstructure:"cmd_status"`
	CmdStartCollect string `mapstructure:"cmd_startcollect"`
	CmdStopCollect  string `mapstructure:"cmd_stopcollect"`
	CmdAutoCollect  string `mapstructure:"cmd_autocollect"`
	CmdStats        string `mapstructure:"cmd_stats"`
	CmdBroadcast    string `mapstructure:"cmd_broadcast"`
	CmdExport       string `mapstructure:"cmd_export"`
}
