package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
)

var _ remote.Gateway = (*FakeGateway)(nil)

// FakeGateway is an in-memory remote.Gateway. Tests populate the
// exported fields with canned responses; setting an Err field makes
// the corresponding operation group fail, which is how batch-failure
// and partial-source scenarios are simulated.
type FakeGateway struct {
	mu sync.Mutex

	Users       map[string]model.User
	TasksByUser map[string][]model.Task
	Friends     []model.User
	Incoming    []model.FriendRequest
	Outgoing    []model.FriendRequest
	Invitations []model.GroupInvitation
	Groups      map[string]model.Group
	Events      []model.Event
	Comments    map[string][]model.Comment

	// SubmittedIDs are handed out, in order, for SubmitTasksBatch.
	SubmittedIDs []string

	UserErr    error
	TaskErr    error
	FriendErr  error
	InviteErr  error
	EventErr   error
	SubmitErr  error
	MutateErr  error

	// Calls counts invocations by operation name.
	Calls map[string]int
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Users:       make(map[string]model.User),
		TasksByUser: make(map[string][]model.Task),
		Groups:      make(map[string]model.Group),
		Comments:    make(map[string][]model.Comment),
		Calls:       make(map[string]int),
	}
}

func (g *FakeGateway) record(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls[op]++
}

// CallCount returns how often op was invoked.
func (g *FakeGateway) CallCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls[op]
}

func (g *FakeGateway) FetchUser(ctx context.Context, id string) (*model.User, error) {
	g.record("FetchUser")
	if g.UserErr != nil {
		return nil, g.UserErr
	}
	u, ok := g.Users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return &u, nil
}

func (g *FakeGateway) FetchUsersBatch(ctx context.Context, ids []string) ([]model.User, error) {
	g.record("FetchUsersBatch")
	if g.UserErr != nil {
		return nil, g.UserErr
	}
	var users []model.User
	for _, id := range ids {
		if u, ok := g.Users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (g *FakeGateway) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	g.record("SearchUsers")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.UserErr != nil {
		return nil, g.UserErr
	}
	var users []model.User
	for _, u := range g.Users {
		users = append(users, u)
	}
	return users, nil
}

func (g *FakeGateway) FetchTasks(ctx context.Context, userID, requesterID string) ([]model.Task, error) {
	g.record("FetchTasks")
	if g.TaskErr != nil {
		return nil, g.TaskErr
	}
	return g.TasksByUser[userID], nil
}

func (g *FakeGateway) FetchTasksBatch(
	ctx context.Context,
	ids []string,
	requesterID string,
) (map[string][]model.Task, error) {
	g.record("FetchTasksBatch")
	if g.TaskErr != nil {
		return nil, g.TaskErr
	}
	result := make(map[string][]model.Task, len(ids))
	for _, id := range ids {
		result[id] = g.TasksByUser[id]
	}
	return result, nil
}

func (g *FakeGateway) SubmitTasksBatch(ctx context.Context, tasks []model.Task) ([]string, error) {
	g.record("SubmitTasksBatch")
	if g.SubmitErr != nil {
		return nil, g.SubmitErr
	}
	if len(g.SubmittedIDs) < len(tasks) {
		return nil, fmt.Errorf("fake gateway has %d ids for %d tasks",
			len(g.SubmittedIDs), len(tasks))
	}
	ids := g.SubmittedIDs[:len(tasks)]
	g.SubmittedIDs = g.SubmittedIDs[len(tasks):]
	return ids, nil
}

func (g *FakeGateway) UpdateTask(ctx context.Context, task model.Task) error {
	g.record("UpdateTask")
	return g.MutateErr
}

func (g *FakeGateway) ConfirmTaskCompletion(
	ctx context.Context,
	taskID, confirmerID string,
	isConfirmed bool,
) error {
	g.record("ConfirmTaskCompletion")
	return g.MutateErr
}

func (g *FakeGateway) FetchFriends(ctx context.Context) ([]model.User, error) {
	g.record("FetchFriends")
	if g.FriendErr != nil {
		return nil, g.FriendErr
	}
	return g.Friends, nil
}

func (g *FakeGateway) FetchFriendRequests(
	ctx context.Context,
	direction model.RequestDirection,
) ([]model.FriendRequest, error) {
	g.record("FetchFriendRequests")
	if g.FriendErr != nil {
		return nil, g.FriendErr
	}
	if direction == model.RequestIncoming {
		return g.Incoming, nil
	}
	return g.Outgoing, nil
}

func (g *FakeGateway) SendFriendRequest(
	ctx context.Context,
	receiverID string,
) (*model.FriendRequest, error) {
	g.record("SendFriendRequest")
	if g.MutateErr != nil {
		return nil, g.MutateErr
	}
	req := model.FriendRequest{
		ID:         "req-" + receiverID,
		ReceiverID: receiverID,
	}
	return &req, nil
}

func (g *FakeGateway) AcceptFriendRequest(ctx context.Context, requestID string) error {
	g.record("AcceptFriendRequest")
	return g.MutateErr
}

func (g *FakeGateway) RejectFriendRequest(ctx context.Context, requestID string) error {
	g.record("RejectFriendRequest")
	return g.MutateErr
}

func (g *FakeGateway) CancelFriendRequest(ctx context.Context, requestID string) error {
	g.record("CancelFriendRequest")
	return g.MutateErr
}

func (g *FakeGateway) RemoveFriend(ctx context.Context, friendID string) error {
	g.record("RemoveFriend")
	return g.MutateErr
}

func (g *FakeGateway) FetchGroup(ctx context.Context, groupID string) (*model.Group, error) {
	g.record("FetchGroup")
	if g.InviteErr != nil {
		return nil, g.InviteErr
	}
	grp, ok := g.Groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s not found", groupID)
	}
	return &grp, nil
}

func (g *FakeGateway) FetchGroupInvitations(ctx context.Context) ([]model.GroupInvitation, error) {
	g.record("FetchGroupInvitations")
	if g.InviteErr != nil {
		return nil, g.InviteErr
	}
	return g.Invitations, nil
}

func (g *FakeGateway) InviteToGroup(
	ctx context.Context,
	groupID, inviteeID string,
) (*model.GroupInvitation, error) {
	g.record("InviteToGroup")
	if g.MutateErr != nil {
		return nil, g.MutateErr
	}
	inv := model.GroupInvitation{
		ID:        "inv-" + inviteeID,
		GroupID:   groupID,
		InviteeID: inviteeID,
	}
	return &inv, nil
}

func (g *FakeGateway) AcceptGroupInvitation(ctx context.Context, invitationID string) error {
	g.record("AcceptGroupInvitation")
	return g.MutateErr
}

func (g *FakeGateway) RejectGroupInvitation(ctx context.Context, invitationID string) error {
	g.record("RejectGroupInvitation")
	return g.MutateErr
}

func (g *FakeGateway) KickGroupMember(ctx context.Context, groupID, userID string) error {
	g.record("KickGroupMember")
	return g.MutateErr
}

func (g *FakeGateway) FetchEvents(ctx context.Context, userID string) ([]model.Event, error) {
	g.record("FetchEvents")
	if g.EventErr != nil {
		return nil, g.EventErr
	}
	return g.Events, nil
}

func (g *FakeGateway) FetchEventComments(
	ctx context.Context,
	eventID string,
	limit, offset int,
) ([]model.Comment, error) {
	g.record("FetchEventComments")
	if g.EventErr != nil {
		return nil, g.EventErr
	}
	comments := g.Comments[eventID]
	if offset >= len(comments) {
		return nil, nil
	}
	end := len(comments)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return comments[offset:end], nil
}
