package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Backend is a storage tier holding top-level document keys as JSON values.
// Consumers should depend on this interface rather than *SQLite.
type Backend interface {
	// Get returns the values present for keys. Missing keys are absent
	// from the result; no keys returns everything.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set upserts every entry in one transaction.
	Set(ctx context.Context, values map[string]json.RawMessage) error
	// Replace makes values the tier's whole content in one transaction.
	// Keys starting with keepPrefix survive even when absent from values.
	Replace(ctx context.Context, values map[string]json.RawMessage, keepPrefix string) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Verify *SQLite satisfies Backend at compile time.
var _ Backend = (*SQLite)(nil)

// Get returns the stored values for keys.
func (db *SQLite) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := `SELECT key, value FROM kv`
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += ` WHERE key IN (?` + strings.Repeat(",?", len(keys)-1) + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kv: get: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("kv: scan: %w", err)
		}
		out[k] = json.RawMessage(v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv: get: %w", err)
	}
	return out, nil
}

// Set upserts values within a transaction.
func (db *SQLite) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := upsert(ctx, tx, values); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace deletes every key missing from values, except those starting with
// keepPrefix, and upserts values, all within one transaction.
func (db *SQLite) Replace(ctx context.Context, values map[string]json.RawMessage, keepPrefix string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	rows, err := tx.QueryContext(ctx, `SELECT key FROM kv`)
	if err != nil {
		return fmt.Errorf("kv: list keys: %w", err)
	}
	var stale []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return fmt.Errorf("kv: scan: %w", err)
		}
		if _, ok := values[k]; ok {
			continue
		}
		if keepPrefix != "" && strings.HasPrefix(k, keepPrefix) {
			continue
		}
		stale = append(stale, k)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("kv: list keys: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("kv: list keys: %w", err)
	}

	for _, k := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("kv: delete %s: %w", k, err)
		}
	}
	if err := upsert(ctx, tx, values); err != nil {
		return err
	}
	return tx.Commit()
}

func upsert(ctx context.Context, tx *sql.Tx, values map[string]json.RawMessage) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("kv: prepare set: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for k, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("kv: set %s: value is not valid JSON", k)
		}
		if _, err := stmt.ExecContext(ctx, k, string(v), now); err != nil {
			return fmt.Errorf("kv: set %s: %w", k, err)
		}
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (db *SQLite) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("kv: delete %s: %w", k, err)
		}
	}
	return nil
}
