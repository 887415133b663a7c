// Package storage provides the SQLite persistence layer for FrostGate.
//
// It owns the decisions audit log (hash-chained, per-key diffed), the
// scoped api_keys table, and the tenants table. A single database file
// holds all state; writes are serialized by SQLite, and the
// lookup+insert critical section for decisions is additionally guarded
// by an in-process mutex per diff key.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB handle for the FrostGate state database.
type DB struct {
	sqlDB  *sql.DB
	path   string
	logger *slog.Logger

	// keyMu serializes lookup+insert per (tenant, source, event_type)
	// so a concurrent insert for the same key sees the earlier row as
	// its diff predecessor.
	mu    sync.Mutex
	keyMu map[string]*sync.Mutex
}

// Open opens (creating if needed) the SQLite database at path and
// applies connection pragmas suitable for a single-writer service.
func Open(ctx context.Context, path string, poolSize int, logger *slog.Logger) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}

	return &DB{
		sqlDB:  sqlDB,
		path:   path,
		logger: logger,
		keyMu:  make(map[string]*sync.Mutex),
	}, nil
}

// SQL returns the underlying handle for use by other packages.
func (db *DB) SQL() *sql.DB {
	return db.sqlDB
}

// Path returns the database file path this handle was opened with.
func (db *DB) Path() string {
	return db.path
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// lockKey acquires the per-key mutex for a diff key, returning the
// unlock function.
func (db *DB) lockKey(tenantID, source, eventType string) func() {
	key := tenantID + "\x00" + source + "\x00" + eventType
	db.mu.Lock()
	m, ok := db.keyMu[key]
	if !ok {
		m = &sync.Mutex{}
		db.keyMu[key] = m
	}
	db.mu.Unlock()
	m.Lock()
	return m.Unlock
}
