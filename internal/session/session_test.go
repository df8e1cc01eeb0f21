package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/session"
	"github.com/taskmate/taskmate/tests/testutil"
)

func TestInitFetchesAndStoresUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	gw.Users["me"] = model.User{ID: "me", Handle: "me"}

	if sess.Established() {
		t.Fatal("session established before Init")
	}
	if err := sess.Init(ctx, "me"); err != nil {
		t.Fatalf("init: %v", err)
	}

	if !sess.Established() {
		t.Error("session not established after Init")
	}
	if sess.CurrentUserID() != "me" {
		t.Errorf("current user id = %q, want me", sess.CurrentUserID())
	}

	cached, err := s.GetCurrentUser(ctx)
	if err != nil || cached == nil {
		t.Fatalf("current user not cached: %v, %v", cached, err)
	}
	if !cached.IsCurrent {
		t.Error("cached user missing current flag")
	}
}

func TestInitReusesCachedSession(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	if err := s.SetCurrentUser(ctx, model.User{ID: "me", Handle: "me"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	// The gateway has no record for "me", so Init must hit the cache.
	gw.UserErr = errors.New("offline")
	if err := sess.Init(ctx, "me"); err != nil {
		t.Fatalf("init should reuse cache: %v", err)
	}
	if gw.CallCount("FetchUser") != 0 {
		t.Errorf("fetched %d times despite cached session", gw.CallCount("FetchUser"))
	}
}

func TestInitSwitchesAccount(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	if err := s.SetCurrentUser(ctx, model.User{ID: "old", Handle: "old"}); err != nil {
		t.Fatalf("seeding old session: %v", err)
	}
	gw.Users["new"] = model.User{ID: "new", Handle: "new"}

	if err := sess.Init(ctx, "new"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if sess.CurrentUserID() != "new" {
		t.Errorf("current user = %q, want new", sess.CurrentUserID())
	}

	// The old account's row was purged by the switch.
	if u, _ := s.GetUserByID(ctx, "old"); u != nil {
		t.Error("previous account survived the switch")
	}
}

func TestCurrentUserReturnsCopy(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	gw.Users["me"] = model.User{ID: "me", Handle: "me"}
	if err := sess.Init(ctx, "me"); err != nil {
		t.Fatalf("init: %v", err)
	}

	first := sess.CurrentUser()
	first.Handle = "mutated"
	if sess.CurrentUser().Handle == "mutated" {
		t.Error("CurrentUser exposes internal state")
	}
}

func TestReloadUserPicksUpRelationships(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	gw.Users["me"] = model.User{ID: "me", Handle: "me"}
	if err := sess.Init(ctx, "me"); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := s.SetUserRelationships(ctx, "me", []string{"f1"}, nil, nil); err != nil {
		t.Fatalf("updating relationships: %v", err)
	}
	if err := sess.ReloadUser(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	got := sess.CurrentUser()
	if got == nil || len(got.FriendIDs) != 1 || got.FriendIDs[0] != "f1" {
		t.Errorf("reloaded user = %+v, want friend list picked up", got)
	}
}

func TestResetClearsSession(t *testing.T) {
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()
	sess := session.New(s, gw)
	ctx := context.Background()

	gw.Users["me"] = model.User{ID: "me", Handle: "me"}
	if err := sess.Init(ctx, "me"); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := sess.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if sess.Established() {
		t.Error("session still established after reset")
	}
	if u, _ := s.GetCurrentUser(ctx); u != nil {
		t.Error("current user survived reset")
	}
}
