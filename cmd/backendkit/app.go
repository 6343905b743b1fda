/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/softdelete"
	"github.com/backendkit/go-backendkit/softdelete/memrepo"
	"github.com/backendkit/go-backendkit/softdelete/sqlrepo"
	"github.com/backendkit/go-backendkit/users"
)

// app holds what every command needs: configuration, logger and the users service.
type app struct {
	cfg    *appConfig
	logger log.FieldLogger
	db     *sql.DB
	users  *users.Service

	closeLogger log.CloseFunc
}

func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := loadAppConfig(flags)
	if err != nil {
		return nil, err
	}
	logger, closeLogger := log.NewLogger(cfg.Log)
	a := &app{cfg: cfg, logger: logger, closeLogger: closeLogger}

	var repo softdelete.Repository[*users.User]
	if cfg.Database.DSN == "" {
		logger.Warn("database dsn is not configured, users are kept in memory and lost on exit")
		repo = memrepo.New(users.MemorySchema)
	} else {
		if a.db, err = sqlrepo.Open(ctx, cfg.Database, logger); err != nil {
			a.close()
			return nil, err
		}
		repo = sqlrepo.New(a.db, users.SQLSchema)
	}

	manager := softdelete.NewManager[*users.User](repo, softdelete.ManagerOpts{Logger: logger})
	a.users = users.NewService(manager, logger)
	return a, nil
}

// migrate creates the tables. Nothing is done for the in-memory repository.
func (a *app) migrate(ctx context.Context) error {
	if a.db == nil {
		a.logger.Info("database is not configured, nothing to migrate")
		return nil
	}
	if err := sqlrepo.Migrate(ctx, a.db, users.Migrations, a.logger); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", log.Error(err))
		}
	}
	if a.closeLogger != nil {
		a.closeLogger()
	}
}
