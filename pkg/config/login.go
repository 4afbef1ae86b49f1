package config

import (
	"time"

	"github.com/sosodev/duration"
)

// LoginConfig contains login behavior settings.
type LoginConfig struct {
	// MaxFailedAttempts is the number of failed login attempts before lockout
	MaxFailedAttempts int

	// LockoutDuration is how long the account stays locked (ISO 8601 format,
	// e.g., "PT20M", or Go duration syntax, e.g., "20m")
	LockoutDuration string

	// RememberMeDuration is the session lifetime when "remember me" is checked
	RememberMeDuration string
}

// DefaultLoginConfig returns a LoginConfig with the stock lockout policy:
// three failed attempts lock the account for twenty minutes.
func DefaultLoginConfig() LoginConfig {
	return LoginConfig{
		MaxFailedAttempts:  3,
		LockoutDuration:    "PT20M",
		RememberMeDuration: "P30D",
	}
}

// ParseLockoutDuration parses the LockoutDuration field as a time.Duration.
func (c *LoginConfig) ParseLockoutDuration() (time.Duration, error) {
	return parseISO8601OrGoDuration(c.LockoutDuration)
}

// ParseRememberMeDuration parses the RememberMeDuration field as a time.Duration.
func (c *LoginConfig) ParseRememberMeDuration() (time.Duration, error) {
	return parseISO8601OrGoDuration(c.RememberMeDuration)
}

// parseISO8601OrGoDuration tries ISO 8601 first, then Go duration syntax
func parseISO8601OrGoDuration(s string) (time.Duration, error) {
	isoDuration, err := duration.Parse(s)
	if err == nil {
		return isoDuration.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}
