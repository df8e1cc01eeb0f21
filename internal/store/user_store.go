package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmate/taskmate/internal/model"
)

// UpsertUsers inserts new users or overwrites the mutable profile
// fields of existing ones. The relationship id lists and the current
// flag are deliberately left untouched: a batch user fetch must never
// clobber locally refreshed relationships.
func (s *SQLiteStore) UpsertUsers(
	ctx context.Context,
	users []model.User,
) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning user upsert transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO users (
			id, handle, bio, profile_color, profile_image_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle = excluded.handle,
			bio = excluded.bio,
			profile_color = excluded.profile_color,
			profile_image_url = excluded.profile_image_url,
			updated_at = excluded.updated_at`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing user upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, u := range users {
		if u.ID == "" {
			return fmt.Errorf("user with empty id in upsert batch")
		}
		createdAt := u.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := stmt.ExecContext(ctx,
			u.ID, u.Handle, u.Bio, u.ProfileColor, u.ProfileImageURL,
			createdAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("upserting user %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// GetUserByID retrieves a single user by id. Returns nil, nil when the
// user is not cached.
func (s *SQLiteStore) GetUserByID(
	ctx context.Context,
	id string,
) (*model.User, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM users WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting user %s: %w", id, err)
		}
		return nil, nil
	}

	user, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers retrieves all cached users ordered by handle.
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM users ORDER BY handle")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetCurrentUser returns the signed-in account, or nil when no session
// has been established.
func (s *SQLiteStore) GetCurrentUser(ctx context.Context) (*model.User, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM users WHERE is_current = 1")
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting current user: %w", err)
		}
		return nil, nil
	}

	user, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetCurrentUser stores u as the single current user. Any previously
// cached user rows that are neither u itself nor referenced as a
// friend of u are purged, along with their cached tasks.
func (s *SQLiteStore) SetCurrentUser(ctx context.Context, u model.User) error {
	if u.ID == "" {
		return fmt.Errorf("current user must have an id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning current-user transaction: %w", err)
	}
	defer tx.Rollback()

	keep := append([]string{u.ID}, u.FriendIDs...)
	placeholders := strings.Repeat("?, ", len(keep)-1) + "?"
	args := make([]interface{}, len(keep))
	for i, id := range keep {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tasks WHERE owner_id IN (SELECT id FROM users WHERE id NOT IN ("+placeholders+"))",
		args...); err != nil {
		return fmt.Errorf("purging stale tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM users WHERE id NOT IN ("+placeholders+")",
		args...); err != nil {
		return fmt.Errorf("purging stale users: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET is_current = 0 WHERE is_current = 1"); err != nil {
		return fmt.Errorf("clearing current flag: %w", err)
	}

	friendIDs, err := marshalIDs(u.FriendIDs)
	if err != nil {
		return err
	}
	incomingIDs, err := marshalIDs(u.IncomingRequestIDs)
	if err != nil {
		return err
	}
	outgoingIDs, err := marshalIDs(u.OutgoingRequestIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (
			id, handle, bio, profile_color, profile_image_url,
			friend_ids, incoming_request_ids, outgoing_request_ids,
			is_current, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		u.ID, u.Handle, u.Bio, u.ProfileColor, u.ProfileImageURL,
		friendIDs, incomingIDs, outgoingIDs,
		createdAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("storing current user %s: %w", u.ID, err)
	}

	return tx.Commit()
}

// SetUserRelationships replaces the three relationship id lists of one
// user in a single statement.
func (s *SQLiteStore) SetUserRelationships(
	ctx context.Context,
	userID string,
	friendIDs, incomingIDs, outgoingIDs []string,
) error {
	friends, err := marshalIDs(friendIDs)
	if err != nil {
		return err
	}
	incoming, err := marshalIDs(incomingIDs)
	if err != nil {
		return err
	}
	outgoing, err := marshalIDs(outgoingIDs)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			friend_ids = ?, incoming_request_ids = ?, outgoing_request_ids = ?,
			updated_at = ?
		WHERE id = ?`,
		friends, incoming, outgoing, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("setting relationships for user %s: %w", userID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

// scanUser scans a user row from a sqlx.Rows result set.
func scanUser(rows *sqlx.Rows) (model.User, error) {
	var (
		u           model.User
		friendIDs   string
		incomingIDs string
		outgoingIDs string
		isCurrent   int
	)

	err := rows.Scan(
		&u.ID, &u.Handle, &u.Bio, &u.ProfileColor, &u.ProfileImageURL,
		&friendIDs, &incomingIDs, &outgoingIDs,
		&isCurrent, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("scanning user row: %w", err)
	}

	u.IsCurrent = isCurrent != 0
	if u.FriendIDs, err = unmarshalIDs(friendIDs); err != nil {
		return model.User{}, err
	}
	if u.IncomingRequestIDs, err = unmarshalIDs(incomingIDs); err != nil {
		return model.User{}, err
	}
	if u.OutgoingRequestIDs, err = unmarshalIDs(outgoingIDs); err != nil {
		return model.User{}, err
	}

	return u, nil
}
