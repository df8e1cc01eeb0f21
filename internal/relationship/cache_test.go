package relationship_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/relationship"
	"github.com/taskmate/taskmate/internal/store"
	"github.com/taskmate/taskmate/tests/testutil"
)

func newCache(t *testing.T) (*relationship.Cache, *testutil.FakeGateway, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	gw := testutil.NewFakeGateway()

	if err := s.SetCurrentUser(context.Background(),
		model.User{ID: "me", Handle: "me", IsCurrent: true}); err != nil {
		t.Fatalf("establishing session: %v", err)
	}
	return relationship.NewCache(gw, s), gw, s
}

func TestRefreshPopulatesPredicates(t *testing.T) {
	c, gw, s := newCache(t)
	ctx := context.Background()

	gw.Friends = []model.User{{ID: "f1", Handle: "friend"}}
	gw.Incoming = []model.FriendRequest{{ID: "in1", SenderID: "u2", ReceiverID: "me"}}
	gw.Outgoing = []model.FriendRequest{{ID: "out1", SenderID: "me", ReceiverID: "u3"}}

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if !c.IsFriend("f1") {
		t.Error("f1 not reported as friend")
	}
	if c.IsFriend("u2") {
		t.Error("requester reported as friend")
	}
	if !c.HasPendingRequestFrom("u2") {
		t.Error("incoming request from u2 not visible")
	}
	if !c.HasPendingRequestTo("u3") {
		t.Error("outgoing request to u3 not visible")
	}

	// Friend profiles land in the entity store, and the current user
	// carries the persisted lists.
	if u, err := s.GetUserByID(ctx, "f1"); err != nil || u == nil {
		t.Errorf("friend profile not cached: %v, %v", u, err)
	}
	current, err := s.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("loading current user: %v", err)
	}
	if len(current.FriendIDs) != 1 || current.FriendIDs[0] != "f1" {
		t.Errorf("persisted friend ids = %v, want [f1]", current.FriendIDs)
	}
}

func TestRefreshDropsStaleRequestsForFriends(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	// The server still reports a request pair for an already-confirmed
	// friend; the lists must come back disjoint.
	gw.Friends = []model.User{{ID: "f1", Handle: "friend"}}
	gw.Incoming = []model.FriendRequest{{ID: "in1", SenderID: "f1", ReceiverID: "me"}}
	gw.Outgoing = []model.FriendRequest{{ID: "out1", SenderID: "me", ReceiverID: "f1"}}

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if !c.IsFriend("f1") {
		t.Fatal("f1 not reported as friend")
	}
	if c.HasPendingRequestFrom("f1") {
		t.Error("stale incoming request survived for a confirmed friend")
	}
	if c.HasPendingRequestTo("f1") {
		t.Error("stale outgoing request survived for a confirmed friend")
	}
}

func TestAcceptFriendRequestMovesID(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	req := model.FriendRequest{
		ID: "in1", SenderID: "u2", ReceiverID: "me",
		CreatedAt: time.Now().UTC(),
	}
	gw.Incoming = []model.FriendRequest{req}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The corrective refresh inside Accept sees the server's
	// post-accept state.
	gw.Friends = []model.User{{ID: "u2", Handle: "newfriend"}}
	gw.Incoming = nil

	if err := c.AcceptFriendRequest(ctx, "in1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if !c.IsFriend("u2") {
		t.Error("sender not promoted to friend")
	}
	if c.HasPendingRequestFrom("u2") {
		t.Error("accepted request still listed as incoming")
	}
	if _, ok := c.IncomingRequest("u2"); ok {
		t.Error("accepted request still resolvable")
	}
}

func TestAcceptUnknownRequest(t *testing.T) {
	c, _, _ := newCache(t)
	if err := c.AcceptFriendRequest(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown request id")
	}
}

func TestRejectFriendRequest(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.Incoming = []model.FriendRequest{{ID: "in1", SenderID: "u2", ReceiverID: "me"}}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := c.RejectFriendRequest(ctx, "in1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if c.HasPendingRequestFrom("u2") {
		t.Error("rejected request still listed")
	}
	if c.IsFriend("u2") {
		t.Error("rejected sender became a friend")
	}
}

func TestSendFriendRequestPendingMarker(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	if err := c.SendFriendRequest(ctx, "u9"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !c.HasPendingRequestTo("u9") {
		t.Error("sent request not visible as pending")
	}
	if gw.CallCount("SendFriendRequest") != 1 {
		t.Errorf("gateway called %d times, want 1", gw.CallCount("SendFriendRequest"))
	}
}

func TestSendFriendRequestFailureClearsMarker(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.MutateErr = errors.New("server rejected")
	if err := c.SendFriendRequest(ctx, "u9"); err == nil {
		t.Fatal("expected send failure")
	}
	if c.HasPendingRequestTo("u9") {
		t.Error("failed send left a pending marker behind")
	}

	// A retry after the failure is not blocked by a stale marker.
	gw.MutateErr = nil
	if err := c.SendFriendRequest(ctx, "u9"); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestSendFriendRequestToExistingFriend(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.Friends = []model.User{{ID: "f1"}}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := c.SendFriendRequest(ctx, "f1"); err == nil {
		t.Fatal("expected error sending a request to an existing friend")
	}
	if gw.CallCount("SendFriendRequest") != 0 {
		t.Error("redundant request still hit the gateway")
	}
}

func TestCancelFriendRequest(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.Outgoing = []model.FriendRequest{{ID: "out1", SenderID: "me", ReceiverID: "u3"}}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := c.CancelFriendRequest(ctx, "out1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.HasPendingRequestTo("u3") {
		t.Error("canceled request still listed as outgoing")
	}
}

func TestRemoveFriend(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.Friends = []model.User{{ID: "f1"}}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	gw.Friends = nil
	if err := c.RemoveFriend(ctx, "f1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if c.IsFriend("f1") {
		t.Error("removed friend still reported")
	}
}

func TestGroupMembershipPredicates(t *testing.T) {
	c, _, s := newCache(t)
	ctx := context.Background()

	group := model.Group{
		ID:        "g1",
		Name:      "Hiking",
		CreatorID: "me",
		MemberIDs: []string{"me", "u2"},
		AdminIDs:  []string{"me"},
	}
	if err := s.UpsertGroups(ctx, []model.Group{group}); err != nil {
		t.Fatalf("seeding group: %v", err)
	}

	if !c.IsGroupMember(ctx, "g1", "u2") {
		t.Error("u2 not reported as member")
	}
	if c.IsGroupAdmin(ctx, "g1", "u2") {
		t.Error("u2 reported as admin")
	}
	if !c.IsGroupAdmin(ctx, "g1", "me") {
		t.Error("creator not reported as admin")
	}
	if c.IsGroupMember(ctx, "missing", "me") {
		t.Error("membership reported for unknown group")
	}
}

func TestAcceptGroupInvitationRefreshesGroup(t *testing.T) {
	c, gw, s := newCache(t)
	ctx := context.Background()

	gw.Groups["g1"] = model.Group{
		ID:        "g1",
		Name:      "Hiking",
		CreatorID: "u2",
		MemberIDs: []string{"u2", "me"},
		AdminIDs:  []string{"u2"},
	}

	inv := model.GroupInvitation{ID: "inv1", GroupID: "g1", InviteeID: "me"}
	if err := c.AcceptGroupInvitation(ctx, inv); err != nil {
		t.Fatalf("accept invitation: %v", err)
	}

	group, err := s.GetGroupByID(ctx, "g1")
	if err != nil || group == nil {
		t.Fatalf("group not cached after accept: %v, %v", group, err)
	}
	if !group.HasMember("me") {
		t.Errorf("cached group members = %v, want to include me", group.MemberIDs)
	}
}

func TestKickGroupMemberFailureClearsMarker(t *testing.T) {
	c, gw, _ := newCache(t)
	ctx := context.Background()

	gw.MutateErr = errors.New("not an admin")
	if err := c.KickGroupMember(ctx, "g1", "u2"); err == nil {
		t.Fatal("expected kick failure")
	}

	gw.MutateErr = nil
	gw.Groups["g1"] = model.Group{ID: "g1", CreatorID: "me", MemberIDs: []string{"me"}}
	if err := c.KickGroupMember(ctx, "g1", "u2"); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}
