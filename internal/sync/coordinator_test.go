package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/store"
	tasksync "github.com/taskmate/taskmate/internal/sync"
	"github.com/taskmate/taskmate/tests/testutil"
)

func newCoordinator(t *testing.T) (*tasksync.Coordinator, *testutil.FakeGateway, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	rec := tasksync.NewReconciler(s)
	return tasksync.NewCoordinator(gw, s, rec), gw, s
}

func TestSyncTasksBatchAppliesAllUsers(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	gw.TasksByUser["u1"] = []model.Task{makeTask("t1", "u1", "One", false)}
	gw.TasksByUser["u2"] = []model.Task{
		makeTask("t2", "u2", "Two", false),
		makeTask("t3", "u2", "Three", true),
	}

	results, err := c.SyncTasks(ctx, []string{"u1", "u2", "u3"}, "u1")
	if err != nil {
		t.Fatalf("sync tasks: %v", err)
	}
	if got := results["u2"].Inserted; got != 2 {
		t.Errorf("u2 inserted = %d, want 2", got)
	}
	if gw.CallCount("FetchTasksBatch") != 1 {
		t.Errorf("batch used %d round trips, want 1", gw.CallCount("FetchTasksBatch"))
	}

	for user, want := range map[string]int{"u1": 1, "u2": 2, "u3": 0} {
		tasks, err := s.GetTasksByOwner(ctx, user)
		if err != nil {
			t.Fatalf("loading tasks for %s: %v", user, err)
		}
		if len(tasks) != want {
			t.Errorf("%s has %d cached tasks, want %d", user, len(tasks), want)
		}
	}
}

func TestSyncTasksBatchFailureAppliesNothing(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	// Five users with one cached task each.
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, id := range users {
		task := makeTask("task-"+id, id, "Cached", false)
		if _, err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("seeding %s: %v", id, err)
		}
	}

	gw.TaskErr = errors.New("upstream 502")
	if _, err := c.SyncTasks(ctx, users, "u1"); err == nil {
		t.Fatal("expected batch error")
	}

	// No user's cache was mutated.
	for _, id := range users {
		tasks, err := s.GetTasksByOwner(ctx, id)
		if err != nil {
			t.Fatalf("loading tasks for %s: %v", id, err)
		}
		if len(tasks) != 1 || tasks[0].ID != "task-"+id {
			t.Errorf("%s cache mutated after failed batch: %v", id, tasks)
		}
	}
}

func TestSyncUsersKeepsRelationships(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	seeded := model.User{ID: "u1", Handle: "oldhandle", FriendIDs: []string{"u2", "u3"}}
	if err := s.UpsertUsers(ctx, []model.User{seeded}); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	if err := s.SetUserRelationships(ctx, seeded.ID, seeded.FriendIDs, nil, nil); err != nil {
		t.Fatalf("seeding relationships: %v", err)
	}

	// The batch payload carries no relationship lists.
	gw.Users["u1"] = model.User{ID: "u1", Handle: "newhandle"}

	if _, err := c.SyncUsers(ctx, []string{"u1"}); err != nil {
		t.Fatalf("sync users: %v", err)
	}

	got, err := s.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("loading user: %v", err)
	}
	if got.Handle != "newhandle" {
		t.Errorf("handle = %q, want profile field updated", got.Handle)
	}
	if len(got.FriendIDs) != 2 {
		t.Errorf("friend ids = %v, want relationship list untouched", got.FriendIDs)
	}
}

func TestFlushPendingRewritesIDs(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	first, err := s.CreateTask(ctx, model.Task{OwnerID: "u1", Name: "Draft one"})
	if err != nil {
		t.Fatalf("creating pending task: %v", err)
	}
	second, err := s.CreateTask(ctx, model.Task{OwnerID: "u1", Name: "Draft two"})
	if err != nil {
		t.Fatalf("creating pending task: %v", err)
	}

	gw.SubmittedIDs = []string{"srv-1", "srv-2"}

	flushed, err := c.FlushPending(ctx, "u1")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 2 {
		t.Errorf("flushed %d tasks, want 2", flushed)
	}

	remaining, err := s.GetPendingTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("loading pending: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("still %d pending tasks after flush", len(remaining))
	}

	for _, old := range []string{first.ID, second.ID} {
		if got, err := s.GetTaskByID(ctx, old); err != nil || got != nil {
			t.Errorf("old pending id %s still resolves (%v, %v)", old, got, err)
		}
	}
	got, err := s.GetTaskByID(ctx, "srv-1")
	if err != nil || got == nil {
		t.Fatalf("server id not present after flush: %v, %v", got, err)
	}
	if got.Name != "Draft one" {
		t.Errorf("rewritten task name = %q, want %q", got.Name, "Draft one")
	}
}

func TestFlushPendingFailureKeepsPendingIDs(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	if _, err := s.CreateTask(ctx, model.Task{OwnerID: "u1", Name: "Draft"}); err != nil {
		t.Fatalf("creating pending task: %v", err)
	}
	gw.SubmitErr = errors.New("server unavailable")

	if _, err := c.FlushPending(ctx, "u1"); err == nil {
		t.Fatal("expected submit error")
	}

	pending, err := s.GetPendingTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("loading pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending count = %d, want task retained for retry", len(pending))
	}
}

func TestPushTaskUpdatePendingStaysLocal(t *testing.T) {
	c, gw, s := newCoordinator(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, model.Task{OwnerID: "u1", Name: "Draft"})
	if err != nil {
		t.Fatalf("creating pending task: %v", err)
	}

	created.Name = "Draft, edited"
	if err := c.PushTaskUpdate(ctx, *created); err != nil {
		t.Fatalf("push: %v", err)
	}
	if gw.CallCount("UpdateTask") != 0 {
		t.Error("pending task edit hit the server")
	}

	got, err := s.GetTaskByID(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("loading task: %v, %v", got, err)
	}
	if got.Name != "Draft, edited" {
		t.Errorf("name = %q, want local edit applied", got.Name)
	}
}

func TestConfirmCompletionMirrorsLocally(t *testing.T) {
	c, _, s := newCoordinator(t)
	ctx := context.Background()

	task := makeTask("t1", "u2", "Chores", true)
	task.Completion.RequiresConfirmation = true
	if _, err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("seeding task: %v", err)
	}

	if err := c.ConfirmCompletion(ctx, "t1", "u1", true); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	got, err := s.GetTaskByID(ctx, "t1")
	if err != nil || got == nil {
		t.Fatalf("loading task: %v, %v", got, err)
	}
	if !got.Completion.IsConfirmed || got.Completion.ConfirmerID != "u1" {
		t.Errorf("completion = %+v, want confirmed by u1", got.Completion)
	}
}
