package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/store"
	tasksync "github.com/taskmate/taskmate/internal/sync"
	"github.com/taskmate/taskmate/tests/testutil"
)

func makeTask(id, ownerID, name string, completed bool) model.Task {
	return model.Task{
		ID:         id,
		OwnerID:    ownerID,
		AuthorID:   ownerID,
		Name:       name,
		CreatedAt:  time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		Difficulty: model.DifficultyMedium,
		Privacy:    model.Privacy{Level: model.PrivacyEveryone},
		Completion: model.Completion{IsCompleted: completed},
	}
}

func localTaskIDs(t *testing.T, s *store.SQLiteStore, ownerID string) map[string]bool {
	t.Helper()
	tasks, err := s.GetTasksByOwner(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("loading tasks: %v", err)
	}
	ids := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		ids[task.ID] = true
	}
	return ids
}

func TestReconcileMergesSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	// Local cache: TaskA (done) and TaskC.
	taskA := makeTask("task-a", "u1", "Task A", true)
	taskC := makeTask("task-c", "u1", "Task C", false)
	for _, task := range []model.Task{taskA, taskC} {
		if _, err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("seeding task %s: %v", task.ID, err)
		}
	}

	// Remote snapshot: TaskA (not done) and TaskB.
	snapshot := []model.Task{
		makeTask("task-a", "u1", "Task A", false),
		makeTask("task-b", "u1", "Task B", false),
	}

	result, err := rec.Reconcile(ctx, "u1", snapshot)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Updated != 1 || result.Inserted != 1 || result.Deleted != 1 {
		t.Errorf("got result %+v, want 1 updated, 1 inserted, 1 deleted", result)
	}

	ids := localTaskIDs(t, s, "u1")
	if len(ids) != 2 || !ids["task-a"] || !ids["task-b"] {
		t.Errorf("local cache = %v, want exactly {task-a, task-b}", ids)
	}

	got, err := s.GetTaskByID(ctx, "task-a")
	if err != nil {
		t.Fatalf("loading task-a: %v", err)
	}
	if got.Completion.IsCompleted {
		t.Error("task-a still completed; remote snapshot should have overwritten it")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	snapshot := []model.Task{
		makeTask("task-1", "u1", "One", false),
		makeTask("task-2", "u1", "Two", true),
	}

	if _, err := rec.Reconcile(ctx, "u1", snapshot); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	firstState, err := s.GetTasksByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("loading first state: %v", err)
	}

	result, err := rec.Reconcile(ctx, "u1", snapshot)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if result.Changed() {
		t.Errorf("second pass changed state: %+v", result)
	}

	secondState, err := s.GetTasksByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("loading second state: %v", err)
	}
	if len(firstState) != len(secondState) {
		t.Fatalf("state size changed: %d -> %d", len(firstState), len(secondState))
	}
}

func TestReconcilePreservesPendingTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	// A locally created task awaiting submission gets a pending id.
	pending, err := s.CreateTask(ctx, model.Task{
		OwnerID: "u1",
		Name:    "Not yet submitted",
	})
	if err != nil {
		t.Fatalf("creating pending task: %v", err)
	}
	if !model.IsPendingTaskID(pending.ID) {
		t.Fatalf("expected pending id, got %s", pending.ID)
	}

	// An empty snapshot deletes synced tasks but not pending ones.
	synced := makeTask("task-x", "u1", "Synced", false)
	if _, err := s.CreateTask(ctx, synced); err != nil {
		t.Fatalf("seeding synced task: %v", err)
	}

	if _, err := rec.Reconcile(ctx, "u1", nil); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	ids := localTaskIDs(t, s, "u1")
	if !ids[pending.ID] {
		t.Error("pending task was deleted by reconciliation")
	}
	if ids["task-x"] {
		t.Error("synced task absent from snapshot should have been deleted")
	}
}

func TestReconcileDuplicateIDsLastWins(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	first := makeTask("task-dup", "u1", "First", false)
	second := makeTask("task-dup", "u1", "Second", false)

	if _, err := rec.Reconcile(ctx, "u1", []model.Task{first, second}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, err := s.GetTaskByID(ctx, "task-dup")
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	if got.Name != "Second" {
		t.Errorf("got name %q, want later duplicate to win", got.Name)
	}
}

func TestReconcileSetEquality(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	for _, id := range []string{"old-1", "old-2", "old-3"} {
		if _, err := s.CreateTask(ctx, makeTask(id, "u1", id, false)); err != nil {
			t.Fatalf("seeding %s: %v", id, err)
		}
	}

	snapshot := []model.Task{
		makeTask("old-2", "u1", "kept", false),
		makeTask("new-1", "u1", "added", false),
	}
	if _, err := rec.Reconcile(ctx, "u1", snapshot); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	ids := localTaskIDs(t, s, "u1")
	want := map[string]bool{"old-2": true, "new-1": true}
	if len(ids) != len(want) {
		t.Fatalf("cache = %v, want %v", ids, want)
	}
	for id := range want {
		if !ids[id] {
			t.Errorf("cache missing %s", id)
		}
	}
}

func TestReconcileDoesNotCrossOwners(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	if _, err := s.CreateTask(ctx, makeTask("u2-task", "u2", "Other owner", false)); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	// Reconciling u1 with an empty snapshot must not touch u2's cache.
	if _, err := rec.Reconcile(ctx, "u1", nil); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	ids := localTaskIDs(t, s, "u2")
	if !ids["u2-task"] {
		t.Error("reconciling u1 deleted a task belonging to u2")
	}
}

func TestReconcileConcurrentSameOwner(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := tasksync.NewReconciler(s)
	ctx := context.Background()

	snapshot := []model.Task{
		makeTask("task-1", "u1", "One", false),
		makeTask("task-2", "u1", "Two", false),
	}

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := rec.Reconcile(ctx, "u1", snapshot)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent reconcile: %v", err)
		}
	}

	ids := localTaskIDs(t, s, "u1")
	if len(ids) != 2 {
		t.Errorf("cache = %v, want exactly 2 tasks", ids)
	}
}
