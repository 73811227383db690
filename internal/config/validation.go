package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	errs "github.com/edgard/collectbot/internal/errors"
)

// Validate checks struct constraints, then the values validator tags
// cannot express (the link pattern must compile).
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.NewConfigError("configuration validation failed", err)
	}

	if _, err := regexp.Compile(c.Collect.LinkPattern); err != nil {
		return errs.NewConfigError("invalid collect.link_pattern", err)
	}

	return nil
}

// IsOperator reports whether userID is the configured operator.
func (c *Config) IsOperator(userID int64) bool {
	return userID != 0 && userID == c.Telegram.AdminUserID
}

// Location resolves the configured schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Collect.Timezone)
	if err != nil {
		return nil, errs.NewConfigError(fmt.Sprintf("unknown timezone %q", c.Collect.Timezone), err)
	}
	return loc, nil
}

// LinkRegexp compiles the qualifying submission pattern.
func (c *Config) LinkRegexp() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Collect.LinkPattern)
	if err != nil {
		return nil, errs.NewConfigError("invalid collect.link_pattern", err)
	}
	return re, nil
}
