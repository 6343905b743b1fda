/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package sqlrepo

import (
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/config"
)

const cfgDefaultKeyPrefix = "database"

const (
	cfgKeyDSN             = "dsn"
	cfgKeyMaxOpenConns    = "maxOpenConns"
	cfgKeyMaxIdleConns    = "maxIdleConns"
	cfgKeyConnMaxLifetime = "connMaxLifetime"
	cfgKeyConnectAttempts = "connectAttempts"
)

// Default values.
const (
	DefaultMaxOpenConns    = 16
	DefaultMaxIdleConns    = 4
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultConnectAttempts = 5
)

// Config configures the PostgreSQL connection pool.
// An empty DSN means no database is configured.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime config.TimeDuration
	ConnectAttempts int

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config. An empty keyPrefix means "database".
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxOpenConns, DefaultMaxOpenConns)
	dp.SetDefault(cfgKeyMaxIdleConns, DefaultMaxIdleConns)
	dp.SetDefault(cfgKeyConnMaxLifetime, DefaultConnMaxLifetime.String())
	dp.SetDefault(cfgKeyConnectAttempts, DefaultConnectAttempts)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.DSN, err = dp.GetString(cfgKeyDSN); err != nil {
		return err
	}
	if c.MaxOpenConns, err = dp.GetInt(cfgKeyMaxOpenConns); err != nil {
		return err
	}
	if c.MaxOpenConns < 0 {
		return dp.WrapKeyErr(cfgKeyMaxOpenConns, fmt.Errorf("should be >= 0"))
	}
	if c.MaxIdleConns, err = dp.GetInt(cfgKeyMaxIdleConns); err != nil {
		return err
	}
	if c.MaxIdleConns < 0 {
		return dp.WrapKeyErr(cfgKeyMaxIdleConns, fmt.Errorf("should be >= 0"))
	}
	var d time.Duration
	if d, err = dp.GetDuration(cfgKeyConnMaxLifetime); err != nil {
		return err
	}
	c.ConnMaxLifetime = config.TimeDuration(d)
	c.ConnectAttempts, err = dp.GetInt(cfgKeyConnectAttempts)
	return err
}
