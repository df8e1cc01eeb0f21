package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmate/taskmate/internal/model"
)

// taskUpsertSQL writes every task column. The primary key is the join
// key for reconciliation, so REPLACE keeps row identity stable while
// overwriting all mutable fields with the remote-authoritative values.
const taskUpsertSQL = `
	INSERT OR REPLACE INTO tasks (
		id, owner_id, author_id, name, description,
		created_at, deadline, group_id, assigned_ids,
		difficulty, custom_hours,
		is_completed, proof_url, proof_description,
		requires_confirmation, is_confirmed, confirmer_id, confirmed_at,
		privacy_level, privacy_group_id, privacy_except_ids,
		flag_set, flag_color, flag_name, display_order
	) VALUES (
		?, ?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?,
		?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?,
		?, ?, ?, ?
	)`

// taskUpsertArgs builds the argument list matching taskUpsertSQL.
func taskUpsertArgs(t model.Task) ([]interface{}, error) {
	assigned, err := marshalIDs(t.AssignedIDs)
	if err != nil {
		return nil, fmt.Errorf("task %s assigned ids: %w", t.ID, err)
	}
	exceptIDs, err := marshalIDs(t.Privacy.ExceptIDs)
	if err != nil {
		return nil, fmt.Errorf("task %s except ids: %w", t.ID, err)
	}

	var deadline, confirmedAt interface{}
	if t.Deadline != nil {
		deadline = t.Deadline.UTC()
	}
	if t.Completion.ConfirmedAt != nil {
		confirmedAt = t.Completion.ConfirmedAt.UTC()
	}

	return []interface{}{
		t.ID, t.OwnerID, t.AuthorID, t.Name, t.Description,
		t.CreatedAt.UTC(), deadline, t.GroupID, assigned,
		string(t.Difficulty), t.CustomHours,
		boolToInt(t.Completion.IsCompleted), t.Completion.ProofURL, t.Completion.ProofDescription,
		boolToInt(t.Completion.RequiresConfirmation), boolToInt(t.Completion.IsConfirmed),
		t.Completion.ConfirmerID, confirmedAt,
		string(t.Privacy.Level), t.Privacy.GroupID, exceptIDs,
		boolToInt(t.Flag.Set), t.Flag.Color, t.Flag.Name, t.DisplayOrder,
	}, nil
}

// CreateTask inserts a locally authored task. An empty id is replaced
// with a pending id so the reconciler leaves the task alone until its
// first successful submission.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	task model.Task,
) (*model.Task, error) {
	if strings.TrimSpace(task.Name) == "" {
		return nil, fmt.Errorf("task name must not be empty")
	}
	if task.OwnerID == "" {
		return nil, fmt.Errorf("task owner must not be empty")
	}
	if task.ID == "" {
		task.ID = model.PendingTaskPrefix + uuid.New().String()
	}
	if task.AuthorID == "" {
		task.AuthorID = task.OwnerID
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.Difficulty == "" {
		task.Difficulty = model.DifficultyMedium
	}
	if task.Privacy.Level == "" {
		task.Privacy.Level = model.PrivacyEveryone
	}

	// Default display_order to max+1 within the owner's list.
	if task.DisplayOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(display_order), 0) FROM tasks WHERE owner_id = ?",
			task.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("getting max display_order: %w", err)
		}
		task.DisplayOrder = maxOrder + 1
	}

	args, err := taskUpsertArgs(task)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, taskUpsertSQL, args...); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return &task, nil
}

// UpdateTask overwrites an existing task by id.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return fmt.Errorf("task name must not be empty")
	}

	var exists int
	err := s.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM tasks WHERE id = ?", task.ID)
	if err != nil {
		return fmt.Errorf("checking task %s: %w", task.ID, err)
	}
	if exists == 0 {
		return fmt.Errorf("task %s not found", task.ID)
	}

	args, err := taskUpsertArgs(task)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, taskUpsertSQL, args...); err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task by id.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// GetTaskByID retrieves a single task by its id. Returns nil, nil when
// the task does not exist.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	id string,
) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting task %s: %w", id, err)
		}
		return nil, nil
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasksByOwner retrieves the full local task list for one owner,
// ordered by display position.
func (s *SQLiteStore) GetTasksByOwner(
	ctx context.Context,
	ownerID string,
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM tasks WHERE owner_id = ? ORDER BY display_order, created_at",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// GetTasks retrieves tasks matching the provided filter options.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	if filter.GroupID != nil {
		conditions = append(conditions, "group_id = ?")
		args = append(args, *filter.GroupID)
	}
	if filter.Completed != nil {
		conditions = append(conditions, "is_completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(name LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "deadline IS NOT NULL AND deadline < ?")
		args = append(args, filter.DueBefore.UTC())
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "display_order"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"display_order": true,
			"deadline":      true,
			"created_at":    true,
			"name":          true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ReorderTask updates the display position for a specific task.
func (s *SQLiteStore) ReorderTask(
	ctx context.Context,
	id string,
	newDisplayOrder int,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET display_order = ? WHERE id = ?",
		newDisplayOrder, id,
	)
	if err != nil {
		return fmt.Errorf("reordering task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// GetPendingTasks returns the owner's tasks still carrying a pending
// id, ordered by creation time.
func (s *SQLiteStore) GetPendingTasks(
	ctx context.Context,
	ownerID string,
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM tasks WHERE owner_id = ? AND id LIKE ? ORDER BY created_at",
		ownerID, model.PendingTaskPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("querying pending tasks for %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ApplyTaskSync applies one reconciliation pass for an owner in a
// single transaction: upserts first, then deletions, one commit.
func (s *SQLiteStore) ApplyTaskSync(
	ctx context.Context,
	ownerID string,
	upserts []model.Task,
	deleteIDs []string,
) error {
	if len(upserts) == 0 && len(deleteIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	if len(upserts) > 0 {
		stmt, err := tx.PreparexContext(ctx, taskUpsertSQL)
		if err != nil {
			return fmt.Errorf("preparing upsert statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range upserts {
			args, err := taskUpsertArgs(t)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("upserting task %s: %w", t.ID, err)
			}
		}
	}

	for _, id := range deleteIDs {
		// Deletions are scoped to the owner so a stale id list can
		// never reach into another user's partition.
		_, err := tx.ExecContext(ctx,
			"DELETE FROM tasks WHERE id = ? AND owner_id = ?", id, ownerID)
		if err != nil {
			return fmt.Errorf("deleting task %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ReplaceTaskIDs rewrites pending task ids to server-assigned ids in
// one transaction, keyed oldID -> newID.
func (s *SQLiteStore) ReplaceTaskIDs(
	ctx context.Context,
	mapping map[string]string,
) error {
	if len(mapping) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning id-replace transaction: %w", err)
	}
	defer tx.Rollback()

	for oldID, newID := range mapping {
		if newID == "" {
			return fmt.Errorf("empty replacement id for task %s", oldID)
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE tasks SET id = ? WHERE id = ?", newID, oldID)
		if err != nil {
			return fmt.Errorf("replacing task id %s: %w", oldID, err)
		}
	}

	return tx.Commit()
}

// collectTasks drains a result set into a task slice.
func collectTasks(rows *sqlx.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task            model.Task
		createdAt       time.Time
		deadline        sql.NullTime
		confirmedAt     sql.NullTime
		assignedIDs     string
		exceptIDs       string
		difficulty      string
		privacyLevel    string
		isCompleted     int
		requiresConfirm int
		isConfirmed     int
		flagSet         int
	)

	err := rows.Scan(
		&task.ID, &task.OwnerID, &task.AuthorID, &task.Name, &task.Description,
		&createdAt, &deadline, &task.GroupID, &assignedIDs,
		&difficulty, &task.CustomHours,
		&isCompleted, &task.Completion.ProofURL, &task.Completion.ProofDescription,
		&requiresConfirm, &isConfirmed, &task.Completion.ConfirmerID, &confirmedAt,
		&privacyLevel, &task.Privacy.GroupID, &exceptIDs,
		&flagSet, &task.Flag.Color, &task.Flag.Name, &task.DisplayOrder,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.CreatedAt = createdAt
	if deadline.Valid {
		d := deadline.Time
		task.Deadline = &d
	}
	if confirmedAt.Valid {
		c := confirmedAt.Time
		task.Completion.ConfirmedAt = &c
	}
	task.Difficulty = model.Difficulty(difficulty)
	task.Privacy.Level = model.PrivacyLevel(privacyLevel)
	task.Completion.IsCompleted = isCompleted != 0
	task.Completion.RequiresConfirmation = requiresConfirm != 0
	task.Completion.IsConfirmed = isConfirmed != 0
	task.Flag.Set = flagSet != 0

	if task.AssignedIDs, err = unmarshalIDs(assignedIDs); err != nil {
		return model.Task{}, err
	}
	if task.Privacy.ExceptIDs, err = unmarshalIDs(exceptIDs); err != nil {
		return model.Task{}, err
	}

	return task, nil
}
