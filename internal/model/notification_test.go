package model

import (
	"testing"
	"time"
)

func TestNotificationIDDeterminism(t *testing.T) {
	cases := []struct {
		kind     NotificationType
		sourceID string
		want     string
	}{
		{NotificationFriendRequest, "r1", "friendreq_r1"},
		{NotificationGroupInvite, "i1", "groupinvite_i1"},
		{NotificationDeadline, "t1", "deadline_t1"},
		{NotificationConfirmationRequest, "t1", "confirm_t1"},
		{NotificationEventLike, "e1", "like_e1"},
		{NotificationEventComment, "e1", "comment_e1"},
	}
	for _, tc := range cases {
		if got := NotificationID(tc.kind, tc.sourceID); got != tc.want {
			t.Errorf("NotificationID(%s, %s) = %q, want %q",
				tc.kind, tc.sourceID, got, tc.want)
		}
		// Stable across calls.
		if again := NotificationID(tc.kind, tc.sourceID); again != tc.want {
			t.Errorf("id not stable for %s/%s", tc.kind, tc.sourceID)
		}
	}
}

func TestNotificationIDDistinctAcrossKinds(t *testing.T) {
	kinds := []NotificationType{
		NotificationFriendRequest,
		NotificationGroupInvite,
		NotificationDeadline,
		NotificationConfirmationRequest,
		NotificationEventLike,
		NotificationEventComment,
	}
	seen := make(map[string]NotificationType)
	for _, kind := range kinds {
		id := NotificationID(kind, "same-source")
		if prev, dup := seen[id]; dup {
			t.Errorf("kinds %s and %s collide on id %q", prev, kind, id)
		}
		seen[id] = kind
	}
}

func TestTaskDueWithin(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	window := 3 * 24 * time.Hour

	in := now.Add(48 * time.Hour)
	out := now.Add(5 * 24 * time.Hour)
	past := now.Add(-time.Minute)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"inside window", Task{Deadline: &in}, true},
		{"outside window", Task{Deadline: &out}, false},
		{"already past", Task{Deadline: &past}, false},
		{"no deadline", Task{}, false},
		{"completed", Task{Deadline: &in,
			Completion: Completion{IsCompleted: true}}, false},
	}
	for _, tc := range cases {
		if got := tc.task.DueWithin(now, window); got != tc.want {
			t.Errorf("%s: DueWithin = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGroupNormalize(t *testing.T) {
	g := Group{
		ID:        "g1",
		CreatorID: "creator",
		MemberIDs: []string{"m1", "m1", "m2"},
		AdminIDs:  []string{"a1", "a1"},
	}
	g.Normalize()

	for _, id := range []string{"creator", "m1", "m2", "a1"} {
		if !g.HasMember(id) {
			t.Errorf("members = %v, missing %s", g.MemberIDs, id)
		}
	}
	if len(g.MemberIDs) != 4 {
		t.Errorf("members = %v, want 4 deduplicated entries", g.MemberIDs)
	}
	if !g.HasAdmin("creator") || !g.HasAdmin("a1") {
		t.Errorf("admins = %v, want creator and a1", g.AdminIDs)
	}
	if g.HasAdmin("m1") {
		t.Errorf("plain member promoted to admin: %v", g.AdminIDs)
	}
}

func TestIsPendingTaskID(t *testing.T) {
	if !IsPendingTaskID(PendingTaskPrefix + "abc") {
		t.Error("prefixed id not recognized as pending")
	}
	if IsPendingTaskID("srv-123") {
		t.Error("server id recognized as pending")
	}
}
