package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmate/taskmate/internal/model"
)

// UpsertEvents inserts or replaces a batch of social events.
func (s *SQLiteStore) UpsertEvents(
	ctx context.Context,
	events []model.Event,
) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning event upsert transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO events (
			id, user_id, target_user_id, type, size,
			created_at, expires_at, task_ids, streak_days,
			like_count, comment_count, liked_by_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing event upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if e.ID == "" {
			return fmt.Errorf("event with empty id in upsert batch")
		}

		taskIDs, err := marshalIDs(e.TaskIDs)
		if err != nil {
			return fmt.Errorf("event %s task ids: %w", e.ID, err)
		}
		likedByIDs, err := marshalIDs(e.LikedByIDs)
		if err != nil {
			return fmt.Errorf("event %s liked-by ids: %w", e.ID, err)
		}

		var expiresAt interface{}
		if !e.ExpiresAt.IsZero() {
			expiresAt = e.ExpiresAt.UTC()
		}

		_, err = stmt.ExecContext(ctx,
			e.ID, e.UserID, e.TargetUserID, string(e.Type), string(e.Size),
			e.CreatedAt.UTC(), expiresAt, taskIDs, e.StreakDays,
			e.LikeCount, e.CommentCount, likedByIDs,
		)
		if err != nil {
			return fmt.Errorf("upserting event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// GetEventsByUser retrieves cached events originated by one user,
// most recent first.
func (s *SQLiteStore) GetEventsByUser(
	ctx context.Context,
	userID string,
) ([]model.Event, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM events WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying events for user %s: %w", userID, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteExpiredEvents removes events whose expiry has passed and
// returns the number deleted.
func (s *SQLiteStore) DeleteExpiredEvents(
	ctx context.Context,
	now time.Time,
) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE expires_at IS NOT NULL AND expires_at < ?",
		now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired events: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// scanEvent scans an event row from a sqlx.Rows result set.
func scanEvent(rows *sqlx.Rows) (model.Event, error) {
	var (
		e          model.Event
		eventType  string
		size       string
		expiresAt  sql.NullTime
		taskIDs    string
		likedByIDs string
	)

	err := rows.Scan(
		&e.ID, &e.UserID, &e.TargetUserID, &eventType, &size,
		&e.CreatedAt, &expiresAt, &taskIDs, &e.StreakDays,
		&e.LikeCount, &e.CommentCount, &likedByIDs,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	e.Type = model.EventType(eventType)
	e.Size = model.EventSize(size)
	if expiresAt.Valid {
		e.ExpiresAt = expiresAt.Time
	}
	if e.TaskIDs, err = unmarshalIDs(taskIDs); err != nil {
		return model.Event{}, err
	}
	if e.LikedByIDs, err = unmarshalIDs(likedByIDs); err != nil {
		return model.Event{}, err
	}

	return e, nil
}
