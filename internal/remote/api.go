package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// API implements Gateway against the taskmate REST API.
type API struct {
	client *Client
}

// NewAPI creates a Gateway backed by the REST API at baseURL.
func NewAPI(baseURL, token string, timeout time.Duration) *API {
	return &API{client: NewClient(baseURL, token, timeout)}
}

// Response envelopes. The API wraps every list payload in a named
// field so additions stay backward compatible.
type (
	userResponse struct {
		User model.User `json:"user"`
	}
	usersResponse struct {
		Users []model.User `json:"users"`
	}
	tasksResponse struct {
		Tasks []model.Task `json:"tasks"`
	}
	tasksBatchResponse struct {
		TasksByUser map[string][]model.Task `json:"tasks_by_user"`
	}
	submitTasksResponse struct {
		TaskIDs []string `json:"task_ids"`
	}
	friendRequestResponse struct {
		Request model.FriendRequest `json:"request"`
	}
	friendRequestsResponse struct {
		Requests []model.FriendRequest `json:"requests"`
	}
	groupResponse struct {
		Group model.Group `json:"group"`
	}
	groupInvitationResponse struct {
		Invitation model.GroupInvitation `json:"invitation"`
	}
	groupInvitationsResponse struct {
		Invitations []model.GroupInvitation `json:"invitations"`
	}
	eventsResponse struct {
		Events []model.Event `json:"events"`
	}
	commentsResponse struct {
		Comments []model.Comment `json:"comments"`
	}
)

// FetchUser retrieves one user record.
func (a *API) FetchUser(ctx context.Context, id string) (*model.User, error) {
	var resp userResponse
	if err := a.client.Get(ctx, "/v1/users/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return &resp.User, nil
}

// FetchUsersBatch retrieves many user records in one round trip.
func (a *API) FetchUsersBatch(
	ctx context.Context,
	ids []string,
) ([]model.User, error) {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	var resp usersResponse
	if err := a.client.Post(ctx, "/v1/users/batch", body, &resp); err != nil {
		return nil, fmt.Errorf("fetching %d users: %w", len(ids), err)
	}
	return resp.Users, nil
}

// SearchUsers finds users whose handle matches the query.
func (a *API) SearchUsers(
	ctx context.Context,
	query string,
) ([]model.User, error) {
	var resp usersResponse
	path := "/v1/users/search?q=" + url.QueryEscape(query)
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return resp.Users, nil
}

// FetchTasks retrieves the authoritative task snapshot for one user,
// privacy-filtered server-side for the requester.
func (a *API) FetchTasks(
	ctx context.Context,
	userID, requesterID string,
) ([]model.Task, error) {
	path := fmt.Sprintf("/v1/users/%s/tasks?requester=%s",
		url.PathEscape(userID), url.QueryEscape(requesterID))

	var resp tasksResponse
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching tasks for %s: %w", userID, err)
	}
	return resp.Tasks, nil
}

// FetchTasksBatch retrieves per-user snapshots for many users in one
// round trip.
func (a *API) FetchTasksBatch(
	ctx context.Context,
	ids []string,
	requesterID string,
) (map[string][]model.Task, error) {
	body := struct {
		UserIDs     []string `json:"user_ids"`
		RequesterID string   `json:"requester_id"`
	}{UserIDs: ids, RequesterID: requesterID}

	var resp tasksBatchResponse
	if err := a.client.Post(ctx, "/v1/tasks/batch-fetch", body, &resp); err != nil {
		return nil, fmt.Errorf("fetching tasks for %d users: %w", len(ids), err)
	}
	return resp.TasksByUser, nil
}

// SubmitTasksBatch uploads locally created tasks. The server assigns
// permanent ids, returned in submission order.
func (a *API) SubmitTasksBatch(
	ctx context.Context,
	tasks []model.Task,
) ([]string, error) {
	body := struct {
		Tasks []model.Task `json:"tasks"`
	}{Tasks: tasks}

	var resp submitTasksResponse
	if err := a.client.Post(ctx, "/v1/tasks/batch", body, &resp); err != nil {
		return nil, fmt.Errorf("submitting %d tasks: %w", len(tasks), err)
	}
	if len(resp.TaskIDs) != len(tasks) {
		return nil, fmt.Errorf(
			"submitted %d tasks but got %d ids back",
			len(tasks), len(resp.TaskIDs),
		)
	}
	return resp.TaskIDs, nil
}

// UpdateTask pushes a task edit to the server.
func (a *API) UpdateTask(ctx context.Context, task model.Task) error {
	path := "/v1/tasks/" + url.PathEscape(task.ID)
	if err := a.client.Put(ctx, path, task, nil); err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	return nil
}

// ConfirmTaskCompletion records a confirmation decision on a completed
// task.
func (a *API) ConfirmTaskCompletion(
	ctx context.Context,
	taskID, confirmerID string,
	isConfirmed bool,
) error {
	body := struct {
		ConfirmerID string `json:"confirmer_id"`
		IsConfirmed bool   `json:"is_confirmed"`
	}{ConfirmerID: confirmerID, IsConfirmed: isConfirmed}

	path := "/v1/tasks/" + url.PathEscape(taskID) + "/confirm"
	if err := a.client.Post(ctx, path, body, nil); err != nil {
		return fmt.Errorf("confirming task %s: %w", taskID, err)
	}
	return nil
}

// FetchFriends retrieves the current user's confirmed friends.
func (a *API) FetchFriends(ctx context.Context) ([]model.User, error) {
	var resp usersResponse
	if err := a.client.Get(ctx, "/v1/friends", &resp); err != nil {
		return nil, fmt.Errorf("fetching friends: %w", err)
	}
	return resp.Users, nil
}

// FetchFriendRequests retrieves pending requests in one direction.
func (a *API) FetchFriendRequests(
	ctx context.Context,
	direction model.RequestDirection,
) ([]model.FriendRequest, error) {
	path := "/v1/friend-requests?direction=" + url.QueryEscape(string(direction))

	var resp friendRequestsResponse
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s friend requests: %w", direction, err)
	}
	return resp.Requests, nil
}

// SendFriendRequest creates a pending request to receiverID.
func (a *API) SendFriendRequest(
	ctx context.Context,
	receiverID string,
) (*model.FriendRequest, error) {
	body := struct {
		ReceiverID string `json:"receiver_id"`
	}{ReceiverID: receiverID}

	var resp friendRequestResponse
	if err := a.client.Post(ctx, "/v1/friend-requests", body, &resp); err != nil {
		return nil, fmt.Errorf("sending friend request to %s: %w", receiverID, err)
	}
	return &resp.Request, nil
}

// AcceptFriendRequest accepts an incoming request.
func (a *API) AcceptFriendRequest(ctx context.Context, requestID string) error {
	path := "/v1/friend-requests/" + url.PathEscape(requestID) + "/accept"
	if err := a.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("accepting friend request %s: %w", requestID, err)
	}
	return nil
}

// RejectFriendRequest rejects an incoming request.
func (a *API) RejectFriendRequest(ctx context.Context, requestID string) error {
	path := "/v1/friend-requests/" + url.PathEscape(requestID) + "/reject"
	if err := a.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("rejecting friend request %s: %w", requestID, err)
	}
	return nil
}

// CancelFriendRequest withdraws an outgoing request.
func (a *API) CancelFriendRequest(ctx context.Context, requestID string) error {
	path := "/v1/friend-requests/" + url.PathEscape(requestID)
	if err := a.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("canceling friend request %s: %w", requestID, err)
	}
	return nil
}

// RemoveFriend ends a friendship.
func (a *API) RemoveFriend(ctx context.Context, friendID string) error {
	path := "/v1/friends/" + url.PathEscape(friendID)
	if err := a.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("removing friend %s: %w", friendID, err)
	}
	return nil
}

// FetchGroup retrieves one group with its member and admin lists.
func (a *API) FetchGroup(
	ctx context.Context,
	groupID string,
) (*model.Group, error) {
	var resp groupResponse
	path := "/v1/groups/" + url.PathEscape(groupID)
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching group %s: %w", groupID, err)
	}
	return &resp.Group, nil
}

// FetchGroupInvitations retrieves the current user's pending invites.
func (a *API) FetchGroupInvitations(
	ctx context.Context,
) ([]model.GroupInvitation, error) {
	var resp groupInvitationsResponse
	if err := a.client.Get(ctx, "/v1/group-invitations", &resp); err != nil {
		return nil, fmt.Errorf("fetching group invitations: %w", err)
	}
	return resp.Invitations, nil
}

// InviteToGroup creates a pending invitation for inviteeID.
func (a *API) InviteToGroup(
	ctx context.Context,
	groupID, inviteeID string,
) (*model.GroupInvitation, error) {
	body := struct {
		InviteeID string `json:"invitee_id"`
	}{InviteeID: inviteeID}

	var resp groupInvitationResponse
	path := "/v1/groups/" + url.PathEscape(groupID) + "/invitations"
	if err := a.client.Post(ctx, path, body, &resp); err != nil {
		return nil, fmt.Errorf(
			"inviting %s to group %s: %w", inviteeID, groupID, err,
		)
	}
	return &resp.Invitation, nil
}

// AcceptGroupInvitation accepts a pending invitation.
func (a *API) AcceptGroupInvitation(
	ctx context.Context,
	invitationID string,
) error {
	path := "/v1/group-invitations/" + url.PathEscape(invitationID) + "/accept"
	if err := a.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("accepting group invitation %s: %w", invitationID, err)
	}
	return nil
}

// RejectGroupInvitation rejects a pending invitation.
func (a *API) RejectGroupInvitation(
	ctx context.Context,
	invitationID string,
) error {
	path := "/v1/group-invitations/" + url.PathEscape(invitationID) + "/reject"
	if err := a.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("rejecting group invitation %s: %w", invitationID, err)
	}
	return nil
}

// KickGroupMember removes a member from a group.
func (a *API) KickGroupMember(
	ctx context.Context,
	groupID, userID string,
) error {
	body := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}

	path := "/v1/groups/" + url.PathEscape(groupID) + "/kick"
	if err := a.client.Post(ctx, path, body, nil); err != nil {
		return fmt.Errorf(
			"kicking %s from group %s: %w", userID, groupID, err,
		)
	}
	return nil
}

// FetchEvents retrieves the social events originated by one user.
func (a *API) FetchEvents(
	ctx context.Context,
	userID string,
) ([]model.Event, error) {
	var resp eventsResponse
	path := "/v1/users/" + url.PathEscape(userID) + "/events"
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching events for %s: %w", userID, err)
	}
	return resp.Events, nil
}

// FetchEventComments retrieves a page of comments on one event.
func (a *API) FetchEventComments(
	ctx context.Context,
	eventID string,
	limit, offset int,
) ([]model.Comment, error) {
	var resp commentsResponse
	path := fmt.Sprintf("/v1/events/%s/comments?limit=%d&offset=%d",
		url.PathEscape(eventID), limit, offset)
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching comments for event %s: %w", eventID, err)
	}
	return resp.Comments, nil
}
