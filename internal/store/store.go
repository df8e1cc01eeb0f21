package store

import (
	"context"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	OwnerID     *string
	GroupID     *string
	Completed   *bool
	Query       *string // search name + description
	DueBefore   *time.Time
	SortBy      string // "display_order", "deadline", "created_at", "name"
	SortDesc    bool
	Limit       int
	Offset      int
}

// Store defines the persistence interface for the local entity cache:
// users, tasks, groups, events, plus the notification read-state set
// and sync bookkeeping the engine owns.
type Store interface {
	// === Users ===

	// UpsertUsers inserts new users or overwrites the mutable profile
	// fields of existing ones. Relationship id lists are never touched
	// here; SetUserRelationships owns those.
	UpsertUsers(ctx context.Context, users []model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)

	// GetCurrentUser returns the signed-in account, or nil when no
	// session has been established.
	GetCurrentUser(ctx context.Context) (*model.User, error)

	// SetCurrentUser stores u as the one current user and purges all
	// other cached user rows that are not referenced as a friend of u.
	SetCurrentUser(ctx context.Context, u model.User) error

	// SetUserRelationships replaces the three relationship id lists of
	// one user in a single transaction.
	SetUserRelationships(
		ctx context.Context,
		userID string,
		friendIDs, incomingIDs, outgoingIDs []string,
	) error

	// === Tasks ===

	// CreateTask inserts a locally authored task. An empty ID is
	// replaced with a pending id (model.PendingTaskPrefix + uuid) so
	// reconciliation leaves the task alone until it has been submitted.
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasksByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	ReorderTask(ctx context.Context, id string, newDisplayOrder int) error

	// GetPendingTasks returns the owner's tasks still carrying a
	// pending id, ordered by creation time.
	GetPendingTasks(ctx context.Context, ownerID string) ([]model.Task, error)

	// ApplyTaskSync applies one reconciliation pass for an owner in a
	// single transaction: upserts first, then deletions. A crash
	// mid-pass never leaves a partially merged cache visible.
	ApplyTaskSync(
		ctx context.Context,
		ownerID string,
		upserts []model.Task,
		deleteIDs []string,
	) error

	// ReplaceTaskIDs rewrites pending task ids to server-assigned ids
	// in one transaction, keyed oldID -> newID.
	ReplaceTaskIDs(ctx context.Context, mapping map[string]string) error

	// === Groups ===

	UpsertGroups(ctx context.Context, groups []model.Group) error
	GetGroupByID(ctx context.Context, id string) (*model.Group, error)
	GetGroups(ctx context.Context) ([]model.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	// === Events ===

	UpsertEvents(ctx context.Context, events []model.Event) error
	GetEventsByUser(ctx context.Context, userID string) ([]model.Event, error)
	DeleteExpiredEvents(ctx context.Context, now time.Time) (int, error)

	// === Notification read state ===

	// MarkNotificationRead records id as read. Returns true when the
	// call changed state, false when the id was already read.
	MarkNotificationRead(ctx context.Context, id string) (bool, error)

	// MarkNotificationsRead records all ids as read and returns the
	// number of ids that were not already read.
	MarkNotificationsRead(ctx context.Context, ids []string) (int, error)

	GetReadNotificationIDs(ctx context.Context) (map[string]bool, error)

	// === Sync bookkeeping ===

	GetSyncValue(ctx context.Context, key string) (string, error)
	SetSyncValue(ctx context.Context, key, value string) error

	// ResetSession deletes all cached entities, read state, and sync
	// bookkeeping. Used on logout.
	ResetSession(ctx context.Context) error
}
