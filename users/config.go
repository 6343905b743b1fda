/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package users

import (
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/config"
)

const cfgDefaultKeyPrefix = "users"

const (
	cfgKeyAllowViewDeleted = "allowViewDeleted"
	cfgKeyPrefetchTTL      = "prefetchTTL"
)

// Config configures the users API.
type Config struct {
	// AllowViewDeleted enables the trash endpoints of the users API.
	AllowViewDeleted bool
	PrefetchTTL      config.TimeDuration

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config. An empty keyPrefix means "users".
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
	dp.SetDefault(cfgKeyAllowViewDeleted, true)
	dp.SetDefault(cfgKeyPrefetchTTL, DefaultPrefetchTTL.String())
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.AllowViewDeleted, err = dp.GetBool(cfgKeyAllowViewDeleted); err != nil {
		return err
	}
	var ttl time.Duration
	if ttl, err = dp.GetDuration(cfgKeyPrefetchTTL); err != nil {
		return err
	}
	if ttl <= 0 {
		return dp.WrapKeyErr(cfgKeyPrefetchTTL, fmt.Errorf("must be positive"))
	}
	c.PrefetchTTL = config.TimeDuration(ttl)
	return nil
}
