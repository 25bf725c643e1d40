package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// migrateRetries bounds how often a locked store is retried at startup.
const migrateRetries = 5

// migrateBackoff is the initial Fibonacci backoff between migration attempts.
var migrateBackoff = 200 * time.Millisecond

// RunMigrations executes all pending goose migrations against the principal store.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// MigrateWithRetry runs RunMigrations, retrying with backoff while another
// process holds the SQLite write lock.
func MigrateWithRetry(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	attempt := 0
	b := retry.WithMaxRetries(migrateRetries, retry.NewFibonacci(migrateBackoff))
	return retry.Do(ctx, b, func(_ context.Context) error {
		attempt++
		err := RunMigrations(db)
		if err == nil {
			return nil
		}
		if isBusy(err) {
			if logger != nil {
				logger.Warn("store locked, retrying migrations", "attempt", attempt, "error", err)
			}
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// MigrationVersion returns the current schema version.
func MigrationVersion(db *sql.DB) (int64, error) {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("goose set dialect: %w", err)
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}
