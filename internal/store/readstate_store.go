package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MarkNotificationRead records a notification id as read. Returns true
// when the call changed state, false when the id was already marked.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	id string,
) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("notification id must not be empty")
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO read_notifications (id, marked_at) VALUES (?, ?)",
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("marking notification %s read: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkNotificationsRead records all ids as read and returns the number
// that were not already read.
func (s *SQLiteStore) MarkNotificationsRead(
	ctx context.Context,
	ids []string,
) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning read-state transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT OR IGNORE INTO read_notifications (id, marked_at) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing read-state statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	changed := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		result, err := stmt.ExecContext(ctx, id, now)
		if err != nil {
			return 0, fmt.Errorf("marking notification %s read: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		changed += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return changed, nil
}

// GetReadNotificationIDs returns the persisted set of read ids.
func (s *SQLiteStore) GetReadNotificationIDs(
	ctx context.Context,
) (map[string]bool, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id FROM read_notifications")
	if err != nil {
		return nil, fmt.Errorf("querying read notifications: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning read notification id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// GetSyncValue reads a sync bookkeeping value. Missing keys return an
// empty string.
func (s *SQLiteStore) GetSyncValue(
	ctx context.Context,
	key string,
) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM sync_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting sync value %q: %w", key, err)
	}
	return value, nil
}

// SetSyncValue writes a sync bookkeeping value.
func (s *SQLiteStore) SetSyncValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sync_state (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("setting sync value %q: %w", key, err)
	}
	return nil
}

// ResetSession deletes all cached entities, read state, and sync
// bookkeeping in one transaction. Used on logout.
func (s *SQLiteStore) ResetSession(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"tasks", "users", "groups", "events",
		"read_notifications", "sync_state",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	return tx.Commit()
}
