/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/retry"
)

// Open opens the connection pool and pings the database, retrying with exponential backoff.
func Open(ctx context.Context, cfg *Config, logger log.FieldLogger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if err = Ping(ctx, db, cfg.ConnectAttempts, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("connected to database")
	return db, nil
}

// Ping checks the connection, retrying up to attempts times.
func Ping(ctx context.Context, db *sql.DB, attempts int, logger log.FieldLogger) error {
	policy := retry.NewExponentialBackoffPolicy(200*time.Millisecond, attempts).WithMaxInterval(5 * time.Second)
	err := retry.DoWithRetry(ctx, policy, nil, retry.NotifyWithLogger(logger, "ping database"), db.PingContext)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Migrate runs the statements in one transaction. Statements are expected to be idempotent
// ("CREATE TABLE IF NOT EXISTS ...").
func Migrate(ctx context.Context, db *sql.DB, statements []string, logger log.FieldLogger) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration #%d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	logger.Info("database migrated", log.Int("statements", len(statements)))
	return nil
}
