// Package persist provides the optional durable store: the encrypted
// API key, gateway backend definitions, and rolling audit counters.
// Cache state and compiled schemas are never persisted here — the
// source's design explicitly excludes that.
package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("persist: not found")

// DB wraps a WAL-mode sqlite connection pool.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path in WAL
// mode and runs pending migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // sqlite: single writer, WAL allows concurrent readers via this driver's internal locking
	db := &DB{sql: sqlDB}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.sql.Close() }

// Ping verifies connectivity.
func (db *DB) Ping(ctx context.Context) error { return db.sql.PingContext(ctx) }

type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) q() queryable { return db.sql }

// GetSecret implements secrets.Store.
func (db *DB) GetSecret(ctx context.Context, identifier string) ([]byte, error) {
	var ciphertext []byte
	err := db.q().QueryRowContext(ctx, `SELECT ciphertext FROM secrets WHERE identifier = ?`, identifier).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query secret: %w", err)
	}
	return ciphertext, nil
}

// PutSecret implements secrets.Store.
func (db *DB) PutSecret(ctx context.Context, identifier string, ciphertext []byte) error {
	_, err := db.q().ExecContext(ctx, `
		INSERT INTO secrets (identifier, ciphertext, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET ciphertext = excluded.ciphertext, updated_at = excluded.updated_at
	`, identifier, ciphertext, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert secret: %w", err)
	}
	return nil
}

// DeleteSecret implements secrets.Store.
func (db *DB) DeleteSecret(ctx context.Context, identifier string) error {
	_, err := db.q().ExecContext(ctx, `DELETE FROM secrets WHERE identifier = ?`, identifier)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// BackendRow is a persisted gateway backend definition.
type BackendRow struct {
	Name             string
	Address          string
	MethodPrefix     string
	URIPrefix        string
	TimeoutMs        int64
	ConnectTimeoutMs int64
	MinConns         int
	MaxConns         int
	IdleTimeoutMs    int64
}

// ListBackends returns every persisted backend definition.
func (db *DB) ListBackends(ctx context.Context) ([]BackendRow, error) {
	rows, err := db.q().QueryContext(ctx, `
		SELECT name, address, method_prefix, uri_prefix, timeout_ms, connect_timeout_ms, min_conns, max_conns, idle_timeout_ms
		FROM backends ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list backends: %w", err)
	}
	defer rows.Close()

	var out []BackendRow
	for rows.Next() {
		var b BackendRow
		if err := rows.Scan(&b.Name, &b.Address, &b.MethodPrefix, &b.URIPrefix, &b.TimeoutMs, &b.ConnectTimeoutMs, &b.MinConns, &b.MaxConns, &b.IdleTimeoutMs); err != nil {
			return nil, fmt.Errorf("scan backend: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBackend inserts or replaces a backend definition.
func (db *DB) UpsertBackend(ctx context.Context, b BackendRow) error {
	_, err := db.q().ExecContext(ctx, `
		INSERT INTO backends (name, address, method_prefix, uri_prefix, timeout_ms, connect_timeout_ms, min_conns, max_conns, idle_timeout_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			address = excluded.address, method_prefix = excluded.method_prefix, uri_prefix = excluded.uri_prefix,
			timeout_ms = excluded.timeout_ms, connect_timeout_ms = excluded.connect_timeout_ms,
			min_conns = excluded.min_conns, max_conns = excluded.max_conns, idle_timeout_ms = excluded.idle_timeout_ms
	`, b.Name, b.Address, b.MethodPrefix, b.URIPrefix, b.TimeoutMs, b.ConnectTimeoutMs, b.MinConns, b.MaxConns, b.IdleTimeoutMs)
	if err != nil {
		return fmt.Errorf("upsert backend: %w", err)
	}
	return nil
}

// DeleteBackend removes a backend definition by name.
func (db *DB) DeleteBackend(ctx context.Context, name string) error {
	_, err := db.q().ExecContext(ctx, `DELETE FROM backends WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete backend: %w", err)
	}
	return nil
}

// RecordAuditCounter increments today's bucket for a method/outcome
// pair, creating the row if absent.
func (db *DB) RecordAuditCounter(ctx context.Context, day string, method string, failed bool) error {
	column := "success_count"
	success, failure := 1, 0
	if failed {
		column = "failure_count"
		success, failure = 0, 1
	}
	_, err := db.q().ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO audit_counters (day, method, success_count, failure_count) VALUES (?, ?, ?, ?)
		ON CONFLICT(day, method) DO UPDATE SET %s = %s + 1
	`, column, column), day, method, success, failure)
	if err != nil {
		return fmt.Errorf("record audit counter: %w", err)
	}
	return nil
}

// AuditCounterRow is one rolling (day, method) audit bucket.
type AuditCounterRow struct {
	Day          string
	Method       string
	SuccessCount int64
	FailureCount int64
}

// ListAuditCounters returns every bucket on or after sinceDay.
func (db *DB) ListAuditCounters(ctx context.Context, sinceDay string) ([]AuditCounterRow, error) {
	rows, err := db.q().QueryContext(ctx, `
		SELECT day, method, success_count, failure_count FROM audit_counters WHERE day >= ? ORDER BY day, method
	`, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("list audit counters: %w", err)
	}
	defer rows.Close()

	var out []AuditCounterRow
	for rows.Next() {
		var r AuditCounterRow
		if err := rows.Scan(&r.Day, &r.Method, &r.SuccessCount, &r.FailureCount); err != nil {
			return nil, fmt.Errorf("scan audit counter: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
