package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/store"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Updated  int
	Inserted int
	Deleted  int
}

// Changed reports whether the pass modified the local cache.
func (r ReconcileResult) Changed() bool {
	return r.Updated+r.Inserted+r.Deleted > 0
}

// Reconciler merges remote-authoritative task snapshots into the local
// cache by id-based diff. Passes for the same owner are serialized
// through a per-owner mutex; passes for different owners never contend.
type Reconciler struct {
	store store.Store

	mu     gosync.Mutex
	owners map[string]*gosync.Mutex
}

// NewReconciler creates a Reconciler backed by the given store.
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{
		store:  s,
		owners: make(map[string]*gosync.Mutex),
	}
}

// ownerLock returns the mutex guarding reconciliation for one owner.
func (r *Reconciler) ownerLock(ownerID string) *gosync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.owners[ownerID]
	if !ok {
		lock = &gosync.Mutex{}
		r.owners[ownerID] = lock
	}
	return lock
}

// Reconcile merges the full remote task snapshot for one owner into
// the local cache. The snapshot is treated as authoritative and
// complete for that owner at fetch time: cached tasks present in the
// snapshot are overwritten field-for-field, cached tasks absent from
// it are deleted (except pending ones awaiting their first successful
// submission), and snapshot tasks absent from the cache are inserted.
// All changes land in a single transaction, so a crash mid-pass never
// leaves a partially merged cache visible. Running the same snapshot
// twice yields no further changes.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	ownerID string,
	snapshot []model.Task,
) (ReconcileResult, error) {
	if ownerID == "" {
		return ReconcileResult{}, fmt.Errorf("reconcile requires an owner id")
	}

	lock := r.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	// Build the remote id map. Duplicate ids keep the later entry
	// (last-write-wins); order preserves first occurrence so insert
	// order stays stable.
	remote := make(map[string]model.Task, len(snapshot))
	var order []string
	for _, t := range snapshot {
		if t.ID == "" {
			continue
		}
		t.OwnerID = ownerID
		if _, seen := remote[t.ID]; !seen {
			order = append(order, t.ID)
		}
		remote[t.ID] = t
	}

	local, err := r.store.GetTasksByOwner(ctx, ownerID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf(
			"loading local tasks for %s: %w", ownerID, err,
		)
	}

	localByID := make(map[string]model.Task, len(local))
	for _, t := range local {
		localByID[t.ID] = t
	}

	var result ReconcileResult
	var upserts []model.Task
	var deleteIDs []string

	for _, id := range order {
		rt := remote[id]
		lt, exists := localByID[id]
		if exists {
			if !tasksEqual(lt, rt) {
				upserts = append(upserts, rt)
				result.Updated++
			}
			continue
		}
		upserts = append(upserts, rt)
		result.Inserted++
	}

	for _, t := range local {
		if _, ok := remote[t.ID]; ok {
			continue
		}
		// Tasks awaiting their first successful submission are exempt
		// from deletion, as are rows with no usable id.
		if t.ID == "" || model.IsPendingTaskID(t.ID) {
			continue
		}
		deleteIDs = append(deleteIDs, t.ID)
		result.Deleted++
	}

	if err := r.store.ApplyTaskSync(ctx, ownerID, upserts, deleteIDs); err != nil {
		return ReconcileResult{}, fmt.Errorf(
			"applying sync for %s: %w", ownerID, err,
		)
	}

	return result, nil
}

// tasksEqual compares the fields reconciliation is allowed to
// overwrite. Skipping unchanged rows keeps repeat passes write-free.
func tasksEqual(a, b model.Task) bool {
	if a.ID != b.ID ||
		a.OwnerID != b.OwnerID ||
		a.AuthorID != b.AuthorID ||
		a.Name != b.Name ||
		a.Description != b.Description ||
		!a.CreatedAt.Equal(b.CreatedAt) ||
		a.Difficulty != b.Difficulty ||
		a.DisplayOrder != b.DisplayOrder {
		return false
	}
	if !timePtrEqual(a.Deadline, b.Deadline) {
		return false
	}
	if !strPtrEqual(a.GroupID, b.GroupID) {
		return false
	}
	if !floatPtrEqual(a.CustomHours, b.CustomHours) {
		return false
	}
	if !idsEqual(a.AssignedIDs, b.AssignedIDs) {
		return false
	}
	if a.Completion.IsCompleted != b.Completion.IsCompleted ||
		a.Completion.ProofURL != b.Completion.ProofURL ||
		a.Completion.ProofDescription != b.Completion.ProofDescription ||
		a.Completion.RequiresConfirmation != b.Completion.RequiresConfirmation ||
		a.Completion.IsConfirmed != b.Completion.IsConfirmed ||
		a.Completion.ConfirmerID != b.Completion.ConfirmerID ||
		!timePtrEqual(a.Completion.ConfirmedAt, b.Completion.ConfirmedAt) {
		return false
	}
	if a.Privacy.Level != b.Privacy.Level ||
		!strPtrEqual(a.Privacy.GroupID, b.Privacy.GroupID) ||
		!idsEqual(a.Privacy.ExceptIDs, b.Privacy.ExceptIDs) {
		return false
	}
	if a.Flag != b.Flag {
		return false
	}
	return true
}

func idsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
