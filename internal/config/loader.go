package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	errs "github.com/edgard/collectbot/internal/errors"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. BOT_* environment variables
func LoadConfig(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Token and admin id have no defaults, bind them so env-only setups work.
	for _, key := range []string{"telegram.token", "telegram.admin_user_id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errs.NewConfigError("failed to bind env for "+key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		slog.Info("configuration file not found, using defaults and environment", "path", path)
	}

	// Unmarshal over defaults
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded successfully",
		"path", path,
		"capacity", cfg.Collect.Capacity,
		"duration", cfg.Collect.Duration,
		"cooldown", cfg.Collect.Cooldown,
		"timezone", cfg.Collect.Timezone,
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// setDefaults registers default values for optional configuration parameters
// so that viper knows the keys for environment overrides.
func setDefaults(v *viper.Viper) {
	v.SetDefault("collect.capacity", DefaultCapacity)
	v.SetDefault("collect.duration", DefaultDuration)
	v.SetDefault("collect.cooldown", DefaultCooldown)
	v.SetDefault("collect.poll_interval", DefaultPollInterval)
	v.SetDefault("collect.timezone", DefaultTimezone)
	v.SetDefault("collect.link_pattern", DefaultLinkPattern)

	v.SetDefault("publisher.chunk_threshold", DefaultChunkThreshold)
	v.SetDefault("publisher.chunk_size", DefaultChunkSize)
	v.SetDefault("publisher.max_attempts", DefaultMaxAttempts)
	v.SetDefault("publisher.retry_base_delay", DefaultRetryBaseDelay)
	v.SetDefault("publisher.send_timeout", DefaultSendTimeout)

	v.SetDefault("state.path", DefaultStatePath)
	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)
}
