package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
)

// historyLimit bounds save_history; older rows are pruned on every Put.
const historyLimit = 50

// ─── Save Schema ────────────────────────────────────────────────────────────

// SaveMigrations returns the key-value schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func SaveMigrations() []string {
	return []string{
		// One row per logical key; the value is the raw envelope JSON.
		`CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only log of writes, for `brainquest status`.
		`CREATE TABLE IF NOT EXISTS save_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			key        TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			saved_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_save_history_key ON save_history(key, id)`,
	}
}

// ─── Key-Value Operations ───────────────────────────────────────────────────

// Get returns the value stored under key, or domain.ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put upserts key and appends a history row in one transaction.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO save_history (key, size_bytes, saved_at) VALUES (?, ?, ?)`,
		key, len(value), now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM save_history
		WHERE key = ? AND id NOT IN (
			SELECT id FROM save_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, historyLimit); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

// Exists reports whether key is present without reading its value.
func (db *DB) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ─── Save History ───────────────────────────────────────────────────────────

// SaveRecord is one row of save_history.
type SaveRecord struct {
	Key       string
	SizeBytes int
	SavedAt   time.Time
}

// RecentSaves returns up to limit history rows for key, newest first.
func (db *DB) RecentSaves(ctx context.Context, key string, limit int) ([]SaveRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT key, size_bytes, saved_at FROM save_history
		WHERE key = ? ORDER BY id DESC LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var r SaveRecord
		var savedStr string
		if err := rows.Scan(&r.Key, &r.SizeBytes, &savedStr); err != nil {
			return nil, err
		}
		r.SavedAt, _ = time.Parse(time.RFC3339Nano, savedStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
