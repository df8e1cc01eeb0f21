package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// maxConcurrentReconciles bounds the fan-out when feeding batch
// results to the reconciler.
const maxConcurrentReconciles = 4

// Coordinator fans multi-user fetches out over the remote gateway and
// feeds the results to the reconciler and the entity store. Its batch
// operations are atomic: a failed batch call applies nothing locally.
type Coordinator struct {
	gateway    remote.Gateway
	store      store.Store
	reconciler *Reconciler
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	gw remote.Gateway,
	s store.Store,
	rec *Reconciler,
) *Coordinator {
	return &Coordinator{
		gateway:    gw,
		store:      s,
		reconciler: rec,
	}
}

// SyncUsers fetches many user records in one round trip and upserts
// them by id. Only mutable profile fields are written; relationship
// lists are never touched by a user upsert.
func (c *Coordinator) SyncUsers(
	ctx context.Context,
	ids []string,
) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	users, err := c.gateway.FetchUsersBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("user batch failed: %w", err)
	}

	if err := c.store.UpsertUsers(ctx, users); err != nil {
		return nil, fmt.Errorf("caching user batch: %w", err)
	}
	return users, nil
}

// SyncTasks fetches the task snapshots for many users in one round
// trip and reconciles each per-user list into the local cache. The
// whole batch fails as a unit: a gateway error applies nothing. Per
// user reconciliation runs concurrently; owners are partitioned so the
// passes never contend.
func (c *Coordinator) SyncTasks(
	ctx context.Context,
	ids []string,
	requesterID string,
) (map[string]ReconcileResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	snapshots, err := c.gateway.FetchTasksBatch(ctx, ids, requesterID)
	if err != nil {
		return nil, fmt.Errorf("task batch failed: %w", err)
	}

	results := make(map[string]ReconcileResult, len(snapshots))
	var mu gosync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReconciles)

	for ownerID, snapshot := range snapshots {
		g.Go(func() error {
			res, err := c.reconciler.Reconcile(gctx, ownerID, snapshot)
			if err != nil {
				return err
			}
			mu.Lock()
			results[ownerID] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SyncGroup refreshes one group's record, its members' profiles, and
// all members' task lists: one request per kind of data, fanned out
// over the member ids.
func (c *Coordinator) SyncGroup(
	ctx context.Context,
	groupID, requesterID string,
) error {
	group, err := c.gateway.FetchGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("fetching group %s: %w", groupID, err)
	}

	if err := c.store.UpsertGroups(ctx, []model.Group{*group}); err != nil {
		return fmt.Errorf("caching group %s: %w", groupID, err)
	}

	if _, err := c.SyncUsers(ctx, group.MemberIDs); err != nil {
		return err
	}
	if _, err := c.SyncTasks(ctx, group.MemberIDs, requesterID); err != nil {
		return err
	}
	return nil
}

// PushTaskUpdate sends a task edit to the server and, once accepted,
// writes it to the local cache.
func (c *Coordinator) PushTaskUpdate(ctx context.Context, task model.Task) error {
	if model.IsPendingTaskID(task.ID) {
		// Pending tasks go through FlushPending; the server has no
		// record to update yet.
		return c.store.UpdateTask(ctx, task)
	}

	if err := c.gateway.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("pushing task %s: %w", task.ID, err)
	}
	if err := c.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("caching task %s: %w", task.ID, err)
	}
	return nil
}

// ConfirmCompletion records a confirmation decision remotely and then
// mirrors it onto the cached task.
func (c *Coordinator) ConfirmCompletion(
	ctx context.Context,
	taskID, confirmerID string,
	isConfirmed bool,
) error {
	err := c.gateway.ConfirmTaskCompletion(ctx, taskID, confirmerID, isConfirmed)
	if err != nil {
		return fmt.Errorf("confirming task %s: %w", taskID, err)
	}

	task, err := c.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		// Not cached locally; the next reconciliation pass picks up
		// the confirmed state.
		return nil
	}

	now := time.Now().UTC()
	task.Completion.IsConfirmed = isConfirmed
	task.Completion.ConfirmerID = confirmerID
	task.Completion.ConfirmedAt = &now
	return c.store.UpdateTask(ctx, *task)
}
