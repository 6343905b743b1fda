/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/backendkit/go-backendkit/config"
	"github.com/backendkit/go-backendkit/httpserver"
	"github.com/backendkit/go-backendkit/kvstore"
	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/softdelete/sqlrepo"
	"github.com/backendkit/go-backendkit/throttle"
	"github.com/backendkit/go-backendkit/users"
)

// envVarsPrefix: the key "throttle.requestLimit" is read from BACKENDKIT_THROTTLE_REQUESTLIMIT.
const envVarsPrefix = "BACKENDKIT"

const cfgKeyLoginThrottle = "loginThrottle"

type appConfig struct {
	Log      *log.Config
	Server   *httpserver.Config
	KVStore  *kvstore.Config
	Throttle *throttle.Config
	// LoginThrottle limits failed logins per client IP, in the "login-attempt" scope by default.
	LoginThrottle *throttle.Config
	Database *sqlrepo.Config
	Users    *users.Config
}

func newAppConfig() *appConfig {
	return &appConfig{
		Log:      log.NewConfig(""),
		Server:   httpserver.NewConfig(""),
		KVStore:  kvstore.NewConfig(""),
		Throttle: throttle.NewConfig(""),
		Database: sqlrepo.NewConfig(""),
		Users:    users.NewConfig(""),

		LoginThrottle: throttle.NewLoginAttemptConfig(cfgKeyLoginThrottle),
	}
}

// loadAppConfig loads the env file (if any), then the configuration file and the environment.
func loadAppConfig(flags *rootFlags) (*appConfig, error) {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", flags.envFile, err)
		}
	}

	cfg := newAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	if flags.configPath == "" {
		if err := loader.Load(cfg.Log, cfg.Server, cfg.KVStore, cfg.Throttle, cfg.LoginThrottle, cfg.Database, cfg.Users); err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		return cfg, nil
	}

	dataType, err := dataTypeFromPath(flags.configPath)
	if err != nil {
		return nil, err
	}
	err = loader.LoadFromFile(flags.configPath, dataType,
		cfg.Log, cfg.Server, cfg.KVStore, cfg.Throttle, cfg.LoginThrottle, cfg.Database, cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", flags.configPath, err)
	}
	return cfg, nil
}

func dataTypeFromPath(path string) (config.DataType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.DataTypeYAML, nil
	case ".json":
		return config.DataTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported configuration file extension %q", filepath.Ext(path))
	}
}
