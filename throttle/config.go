/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/config"
)

const cfgDefaultKeyPrefix = "throttle"

const (
	cfgKeyEnabled           = "enabled"
	cfgKeyScope             = "scope"
	cfgKeyRequestLimit      = "requestLimit"
	cfgKeyTimeout           = "timeout"
	cfgKeyWaitTimes         = "waitTimes"
	cfgKeyRegisterExempt    = "registerExempt"
	cfgKeyRollWindow        = "rollWindow"
	cfgKeyFailClosed        = "failClosed"
	cfgKeyTrustForwardedFor = "trustForwardedFor"
)

// Config configures throttling of API requests, loaded by config.Loader from the "throttle" section.
type Config struct {
	Enabled bool
	Policy  Policy

	// FailClosed makes the admission layer reject requests (503) when the store fails.
	// By default such requests are admitted.
	FailClosed bool
	// TrustForwardedFor makes the client IP be taken from the X-Forwarded-For header.
	TrustForwardedFor bool

	keyPrefix    string
	defaultScope string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config. An empty keyPrefix means "throttle".
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix, defaultScope: DefaultScope}
}

// NewLoginAttemptConfig creates a new Config for failed logins, read from the keyPrefix section
// with LoginAttemptScope as the default scope.
func NewLoginAttemptConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix, defaultScope: LoginAttemptScope}
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
	dp.SetDefault(cfgKeyEnabled, true)
	scope := c.defaultScope
	if scope == "" {
		scope = DefaultScope
	}
	dp.SetDefault(cfgKeyScope, scope)
	dp.SetDefault(cfgKeyRequestLimit, DefaultRequestLimit)
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	waitTimes := make([]string, 0, len(DefaultWaitTimes))
	for _, wt := range DefaultWaitTimes {
		waitTimes = append(waitTimes, wt.String())
	}
	dp.SetDefault(cfgKeyWaitTimes, waitTimes)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Policy.Scope, err = dp.GetString(cfgKeyScope); err != nil {
		return err
	}
	if c.Policy.RequestLimit, err = dp.GetInt(cfgKeyRequestLimit); err != nil {
		return err
	}
	var timeout time.Duration
	if timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	c.Policy.Timeout = timeout
	if c.Policy.WaitTimes, err = dp.GetDurationSlice(cfgKeyWaitTimes); err != nil {
		return err
	}
	if c.Policy.RegisterExempt, err = dp.GetBool(cfgKeyRegisterExempt); err != nil {
		return err
	}
	if c.Policy.RollWindow, err = dp.GetBool(cfgKeyRollWindow); err != nil {
		return err
	}
	if c.FailClosed, err = dp.GetBool(cfgKeyFailClosed); err != nil {
		return err
	}
	if c.TrustForwardedFor, err = dp.GetBool(cfgKeyTrustForwardedFor); err != nil {
		return err
	}
	if err = c.Policy.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.KeyPrefix(), err)
	}
	return nil
}
