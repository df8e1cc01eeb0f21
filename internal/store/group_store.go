package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmate/taskmate/internal/model"
)

// UpsertGroups inserts or replaces a batch of groups, normalizing each
// so that admins are always members.
func (s *SQLiteStore) UpsertGroups(
	ctx context.Context,
	groups []model.Group,
) error {
	if len(groups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning group upsert transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO groups (
			id, name, description, color, creator_id,
			member_ids, admin_ids, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing group upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, g := range groups {
		if g.ID == "" {
			return fmt.Errorf("group with empty id in upsert batch")
		}
		g.Normalize()

		memberIDs, err := marshalIDs(g.MemberIDs)
		if err != nil {
			return fmt.Errorf("group %s member ids: %w", g.ID, err)
		}
		adminIDs, err := marshalIDs(g.AdminIDs)
		if err != nil {
			return fmt.Errorf("group %s admin ids: %w", g.ID, err)
		}

		createdAt := g.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = stmt.ExecContext(ctx,
			g.ID, g.Name, g.Description, g.Color, g.CreatorID,
			memberIDs, adminIDs, createdAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting group %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// GetGroupByID retrieves a single group by id. Returns nil, nil when
// the group is not cached.
func (s *SQLiteStore) GetGroupByID(
	ctx context.Context,
	id string,
) (*model.Group, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM groups WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting group %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting group %s: %w", id, err)
		}
		return nil, nil
	}

	group, err := scanGroup(rows)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroups retrieves all cached groups ordered by name.
func (s *SQLiteStore) GetGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteGroup removes a group by id and detaches its tasks' group
// reference without deleting the tasks themselves.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning group delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET group_id = NULL WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("detaching tasks from group %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group %s not found", id)
	}

	return tx.Commit()
}

// scanGroup scans a group row from a sqlx.Rows result set.
func scanGroup(rows *sqlx.Rows) (model.Group, error) {
	var (
		g         model.Group
		memberIDs string
		adminIDs  string
	)

	err := rows.Scan(
		&g.ID, &g.Name, &g.Description, &g.Color, &g.CreatorID,
		&memberIDs, &adminIDs, &g.CreatedAt,
	)
	if err != nil {
		return model.Group{}, fmt.Errorf("scanning group row: %w", err)
	}

	if g.MemberIDs, err = unmarshalIDs(memberIDs); err != nil {
		return model.Group{}, err
	}
	if g.AdminIDs, err = unmarshalIDs(adminIDs); err != nil {
		return model.Group{}, err
	}

	return g, nil
}
