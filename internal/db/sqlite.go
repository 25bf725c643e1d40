// Package db provides the SQLite principal store: connection pools,
// migrations, and the transaction executor.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SQLite DSN parameters for production hardening.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
	defaultReadPool    = 4
)

// PoolMode selects how a pool is tuned for the SQLite single-writer model.
type PoolMode string

const (
	// PoolWrite is a single connection that begins transactions with
	// BEGIN IMMEDIATE, serializing writers.
	PoolWrite PoolMode = "write"
	// PoolRead is a multi-connection pool for readers.
	PoolRead PoolMode = "read"
)

// Store holds the write and read pools for one SQLite file.
type Store struct {
	Write *sql.DB
	Read  *sql.DB
}

// Open opens the write pool and a read pool of readMaxOpen connections
// (0 defaults to 4) for the SQLite file at path.
func Open(path string, readMaxOpen int) (*Store, error) {
	write, err := OpenPool(path, PoolWrite, 0)
	if err != nil {
		return nil, err
	}
	read, err := OpenPool(path, PoolRead, readMaxOpen)
	if err != nil {
		_ = write.Close()
		return nil, err
	}
	return &Store{Write: write, Read: read}, nil
}

// Close closes both pools.
func (s *Store) Close() error {
	rerr := s.Read.Close()
	if err := s.Write.Close(); err != nil {
		return fmt.Errorf("close write pool: %w", err)
	}
	if rerr != nil {
		return fmt.Errorf("close read pool: %w", rerr)
	}
	return nil
}

// OpenPool opens a single *sql.DB pool for path.
//
// Both modes set WAL journal, busy_timeout=5000ms, synchronous=NORMAL and
// foreign_keys=on. The write pool is capped at one connection.
func OpenPool(path string, mode PoolMode, maxOpen int) (*sql.DB, error) {
	if mode != PoolRead && mode != PoolWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	switch mode {
	case PoolWrite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case PoolRead:
		if maxOpen <= 0 {
			maxOpen = defaultReadPool
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return db, nil
}

func buildDSN(path string, mode PoolMode) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")

	if mode == PoolWrite {
		params.Set("_txlock", "immediate")
	}

	return path + "?" + params.Encode()
}
