/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package kvstore

import (
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/config"
)

const cfgDefaultKeyPrefix = "kvstore"

const (
	cfgKeyType                  = "type"
	cfgKeyMemoryMaxEntries      = "memory.maxEntries"
	cfgKeyMemoryCleanupInterval = "memory.cleanupInterval"
	cfgKeyMemoryMaxValueSize    = "memory.maxValueSize"
	cfgKeyRedisAddr             = "redis.addr"
	cfgKeyRedisPassword         = "redis.password"
	cfgKeyRedisDB               = "redis.db"
	cfgKeyRedisKeyPrefix        = "redis.keyPrefix"
	cfgKeyRedisDialTimeout      = "redis.dialTimeout"
	cfgKeyRedisConnectAttempts  = "redis.connectAttempts"
)

// Store types.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Default values.
const (
	DefaultMemoryMaxEntries      = 100_000
	DefaultMemoryCleanupInterval = time.Minute
	DefaultRedisDialTimeout      = 5 * time.Second
	DefaultRedisConnectAttempts  = 5
)

// Config selects and configures the throttle state store.
type Config struct {
	Type   string
	Memory MemoryConfig
	Redis  RedisConfig

	keyPrefix string
}

// MemoryConfig configures MemoryStore.
type MemoryConfig struct {
	MaxEntries      int
	CleanupInterval config.TimeDuration
	MaxValueSize    config.ByteSize
}

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	KeyPrefix       string
	DialTimeout     config.TimeDuration
	ConnectAttempts int
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config. An empty keyPrefix means "kvstore".
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
	dp.SetDefault(cfgKeyType, TypeMemory)
	dp.SetDefault(cfgKeyMemoryMaxEntries, DefaultMemoryMaxEntries)
	dp.SetDefault(cfgKeyMemoryCleanupInterval, DefaultMemoryCleanupInterval.String())
	dp.SetDefault(cfgKeyMemoryMaxValueSize, "4K")
	dp.SetDefault(cfgKeyRedisDialTimeout, DefaultRedisDialTimeout.String())
	dp.SetDefault(cfgKeyRedisConnectAttempts, DefaultRedisConnectAttempts)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Type, err = dp.GetStringFromSet(cfgKeyType, []string{TypeMemory, TypeRedis}, true); err != nil {
		return err
	}
	if err = c.setMemory(dp); err != nil {
		return err
	}
	return c.setRedis(dp)
}

func (c *Config) setMemory(dp config.DataProvider) error {
	var err error
	if c.Memory.MaxEntries, err = dp.GetInt(cfgKeyMemoryMaxEntries); err != nil {
		return err
	}
	if c.Memory.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMemoryMaxEntries, fmt.Errorf("must be positive"))
	}
	var d time.Duration
	if d, err = dp.GetDuration(cfgKeyMemoryCleanupInterval); err != nil {
		return err
	}
	c.Memory.CleanupInterval = config.TimeDuration(d)
	c.Memory.MaxValueSize, err = dp.GetByteSize(cfgKeyMemoryMaxValueSize)
	return err
}

func (c *Config) setRedis(dp config.DataProvider) error {
	var err error
	if c.Redis.Addr, err = dp.GetString(cfgKeyRedisAddr); err != nil {
		return err
	}
	if c.Type == TypeRedis && c.Redis.Addr == "" {
		return dp.WrapKeyErr(cfgKeyRedisAddr, fmt.Errorf("cannot be empty when %q store is used", TypeRedis))
	}
	if c.Redis.Password, err = dp.GetString(cfgKeyRedisPassword); err != nil {
		return err
	}
	if c.Redis.DB, err = dp.GetInt(cfgKeyRedisDB); err != nil {
		return err
	}
	if c.Redis.KeyPrefix, err = dp.GetString(cfgKeyRedisKeyPrefix); err != nil {
		return err
	}
	var d time.Duration
	if d, err = dp.GetDuration(cfgKeyRedisDialTimeout); err != nil {
		return err
	}
	c.Redis.DialTimeout = config.TimeDuration(d)
	c.Redis.ConnectAttempts, err = dp.GetInt(cfgKeyRedisConnectAttempts)
	return err
}
