package remote

import (
	"context"

	"github.com/taskmate/taskmate/internal/model"
)

// Gateway is the full set of remote operations the engine consumes.
// Every call either returns a populated result or an error; callers
// branch on the error and leave local state untouched on failure.
// Batch operations fully succeed or fully fail, never partially.
type Gateway interface {
	// === Users ===

	FetchUser(ctx context.Context, id string) (*model.User, error)
	FetchUsersBatch(ctx context.Context, ids []string) ([]model.User, error)
	SearchUsers(ctx context.Context, query string) ([]model.User, error)

	// === Tasks ===

	// FetchTasks returns the authoritative, privacy-filtered task
	// snapshot for one user as seen by the requester.
	FetchTasks(ctx context.Context, userID, requesterID string) ([]model.Task, error)

	// FetchTasksBatch returns per-user snapshots for many users in one
	// round trip, keyed by owner id.
	FetchTasksBatch(
		ctx context.Context,
		ids []string,
		requesterID string,
	) (map[string][]model.Task, error)

	// SubmitTasksBatch uploads locally created tasks and returns the
	// server-assigned ids in submission order.
	SubmitTasksBatch(ctx context.Context, tasks []model.Task) ([]string, error)

	UpdateTask(ctx context.Context, task model.Task) error

	ConfirmTaskCompletion(
		ctx context.Context,
		taskID, confirmerID string,
		isConfirmed bool,
	) error

	// === Friends ===

	FetchFriends(ctx context.Context) ([]model.User, error)
	FetchFriendRequests(
		ctx context.Context,
		direction model.RequestDirection,
	) ([]model.FriendRequest, error)
	SendFriendRequest(ctx context.Context, receiverID string) (*model.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, requestID string) error
	RejectFriendRequest(ctx context.Context, requestID string) error
	CancelFriendRequest(ctx context.Context, requestID string) error
	RemoveFriend(ctx context.Context, friendID string) error

	// === Groups ===

	FetchGroup(ctx context.Context, groupID string) (*model.Group, error)
	FetchGroupInvitations(ctx context.Context) ([]model.GroupInvitation, error)
	InviteToGroup(ctx context.Context, groupID, inviteeID string) (*model.GroupInvitation, error)
	AcceptGroupInvitation(ctx context.Context, invitationID string) error
	RejectGroupInvitation(ctx context.Context, invitationID string) error
	KickGroupMember(ctx context.Context, groupID, userID string) error

	// === Events ===

	FetchEvents(ctx context.Context, userID string) ([]model.Event, error)
	FetchEventComments(
		ctx context.Context,
		eventID string,
		limit, offset int,
	) ([]model.Comment, error)
}
