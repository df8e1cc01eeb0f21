package relationship

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// Cache answers friendship and group membership predicates from
// in-memory lists refreshed off the remote gateway. The lists are
// advisory UI state; the server remains the source of truth, which is
// why every successful mutation is followed by a full refresh rather
// than trusting the optimistic local edit.
type Cache struct {
	gateway remote.Gateway
	store   store.Store

	mu        sync.Mutex
	friendIDs map[string]bool
	incoming  map[string]model.FriendRequest // by request id
	outgoing  map[string]model.FriendRequest // by request id

	// pending holds user ids with a mutation in flight. Entries are
	// cleared when the remote call resolves, success or failure;
	// nothing was persisted optimistically, so there is nothing to
	// roll back.
	pending map[string]bool
}

// NewCache creates an empty relationship cache.
func NewCache(gw remote.Gateway, s store.Store) *Cache {
	return &Cache{
		gateway:   gw,
		store:     s,
		friendIDs: make(map[string]bool),
		incoming:  make(map[string]model.FriendRequest),
		outgoing:  make(map[string]model.FriendRequest),
		pending:   make(map[string]bool),
	}
}

// Refresh replaces the three relationship lists from the gateway and
// persists them onto the cached current user. Friends are also
// upserted into the entity store so their profiles stay available.
// The lists come back disjoint: a confirmed friend is dropped from
// either request list if the server still reports a stale request.
func (c *Cache) Refresh(ctx context.Context) error {
	friends, err := c.gateway.FetchFriends(ctx)
	if err != nil {
		return fmt.Errorf("refreshing friends: %w", err)
	}
	incoming, err := c.gateway.FetchFriendRequests(ctx, model.RequestIncoming)
	if err != nil {
		return fmt.Errorf("refreshing incoming requests: %w", err)
	}
	outgoing, err := c.gateway.FetchFriendRequests(ctx, model.RequestOutgoing)
	if err != nil {
		return fmt.Errorf("refreshing outgoing requests: %w", err)
	}

	if err := c.store.UpsertUsers(ctx, friends); err != nil {
		return fmt.Errorf("caching friends: %w", err)
	}

	friendIDs := make(map[string]bool, len(friends))
	var friendList []string
	for _, f := range friends {
		friendIDs[f.ID] = true
		friendList = append(friendList, f.ID)
	}

	incomingByID := make(map[string]model.FriendRequest, len(incoming))
	var incomingList []string
	for _, req := range incoming {
		if friendIDs[req.SenderID] {
			continue
		}
		incomingByID[req.ID] = req
		incomingList = append(incomingList, req.ID)
	}

	outgoingByID := make(map[string]model.FriendRequest, len(outgoing))
	var outgoingList []string
	for _, req := range outgoing {
		if friendIDs[req.ReceiverID] {
			continue
		}
		outgoingByID[req.ID] = req
		outgoingList = append(outgoingList, req.ID)
	}

	if current, err := c.store.GetCurrentUser(ctx); err == nil && current != nil {
		if err := c.store.SetUserRelationships(ctx, current.ID,
			friendList, incomingList, outgoingList); err != nil {
			return fmt.Errorf("persisting relationships: %w", err)
		}
	}

	c.mu.Lock()
	c.friendIDs = friendIDs
	c.incoming = incomingByID
	c.outgoing = outgoingByID
	c.mu.Unlock()

	return nil
}

// IsFriend reports whether userID is a confirmed friend.
func (c *Cache) IsFriend(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.friendIDs[userID]
}

// HasPendingRequestTo reports whether a request to userID is pending,
// counting both server-confirmed outgoing requests and ones still in
// flight.
func (c *Cache) HasPendingRequestTo(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending[userID] {
		return true
	}
	for _, req := range c.outgoing {
		if req.ReceiverID == userID {
			return true
		}
	}
	return false
}

// HasPendingRequestFrom reports whether userID has an unanswered
// request to the current user.
func (c *Cache) HasPendingRequestFrom(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, req := range c.incoming {
		if req.SenderID == userID {
			return true
		}
	}
	return false
}

// IncomingRequest returns the incoming request sent by userID, if any.
func (c *Cache) IncomingRequest(userID string) (model.FriendRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, req := range c.incoming {
		if req.SenderID == userID {
			return req, true
		}
	}
	return model.FriendRequest{}, false
}

// IsGroupMember reports whether userID belongs to the cached group.
func (c *Cache) IsGroupMember(ctx context.Context, groupID, userID string) bool {
	group, err := c.store.GetGroupByID(ctx, groupID)
	if err != nil || group == nil {
		return false
	}
	return group.HasMember(userID)
}

// IsGroupAdmin reports whether userID administers the cached group.
func (c *Cache) IsGroupAdmin(ctx context.Context, groupID, userID string) bool {
	group, err := c.store.GetGroupByID(ctx, groupID)
	if err != nil || group == nil {
		return false
	}
	return group.HasAdmin(userID)
}

// SendFriendRequest sends a request to receiverID. The target is
// marked pending for the duration of the call so the UI can render an
// in-flight state; the marker clears on resolution either way.
func (c *Cache) SendFriendRequest(ctx context.Context, receiverID string) error {
	c.mu.Lock()
	if c.friendIDs[receiverID] || c.pending[receiverID] {
		c.mu.Unlock()
		return fmt.Errorf("request to %s already underway or redundant", receiverID)
	}
	c.pending[receiverID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, receiverID)
		c.mu.Unlock()
	}()

	req, err := c.gateway.SendFriendRequest(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("sending friend request: %w", err)
	}

	c.mu.Lock()
	c.outgoing[req.ID] = *req
	c.mu.Unlock()
	return nil
}

// AcceptFriendRequest accepts an incoming request. The local lists are
// updated only after the remote call succeeds, then a full refresh
// corrects any server-side side effects the local edit did not
// anticipate.
func (c *Cache) AcceptFriendRequest(ctx context.Context, requestID string) error {
	c.mu.Lock()
	req, ok := c.incoming[requestID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown incoming request %s", requestID)
	}

	if err := c.gateway.AcceptFriendRequest(ctx, requestID); err != nil {
		return fmt.Errorf("accepting friend request %s: %w", requestID, err)
	}

	c.mu.Lock()
	delete(c.incoming, requestID)
	c.friendIDs[req.SenderID] = true
	c.mu.Unlock()

	// Corrective refresh; a failure here leaves the optimistic state,
	// which the next refresh fixes.
	_ = c.Refresh(ctx)
	return nil
}

// RejectFriendRequest declines an incoming request and removes it from
// the incoming list once the remote call succeeds.
func (c *Cache) RejectFriendRequest(ctx context.Context, requestID string) error {
	c.mu.Lock()
	_, ok := c.incoming[requestID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown incoming request %s", requestID)
	}

	if err := c.gateway.RejectFriendRequest(ctx, requestID); err != nil {
		return fmt.Errorf("rejecting friend request %s: %w", requestID, err)
	}

	c.mu.Lock()
	delete(c.incoming, requestID)
	c.mu.Unlock()
	return nil
}

// CancelFriendRequest withdraws an outgoing request and removes it
// from the outgoing list once the remote call succeeds.
func (c *Cache) CancelFriendRequest(ctx context.Context, requestID string) error {
	c.mu.Lock()
	_, ok := c.outgoing[requestID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown outgoing request %s", requestID)
	}

	if err := c.gateway.CancelFriendRequest(ctx, requestID); err != nil {
		return fmt.Errorf("canceling friend request %s: %w", requestID, err)
	}

	c.mu.Lock()
	delete(c.outgoing, requestID)
	c.mu.Unlock()
	return nil
}

// RemoveFriend ends a friendship and drops the id from the friend set
// once the remote call succeeds.
func (c *Cache) RemoveFriend(ctx context.Context, friendID string) error {
	if err := c.gateway.RemoveFriend(ctx, friendID); err != nil {
		return fmt.Errorf("removing friend %s: %w", friendID, err)
	}

	c.mu.Lock()
	delete(c.friendIDs, friendID)
	c.mu.Unlock()

	_ = c.Refresh(ctx)
	return nil
}

// InviteToGroup invites inviteeID into a group, with the same pending
// marker pattern as friend requests.
func (c *Cache) InviteToGroup(ctx context.Context, groupID, inviteeID string) error {
	c.mu.Lock()
	if c.pending[inviteeID] {
		c.mu.Unlock()
		return fmt.Errorf("operation for %s already underway", inviteeID)
	}
	c.pending[inviteeID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, inviteeID)
		c.mu.Unlock()
	}()

	if _, err := c.gateway.InviteToGroup(ctx, groupID, inviteeID); err != nil {
		return fmt.Errorf("inviting to group %s: %w", groupID, err)
	}
	return nil
}

// AcceptGroupInvitation accepts an invite and refetches the group so
// the cached member list reflects the server's view.
func (c *Cache) AcceptGroupInvitation(
	ctx context.Context,
	invitation model.GroupInvitation,
) error {
	if err := c.gateway.AcceptGroupInvitation(ctx, invitation.ID); err != nil {
		return fmt.Errorf("accepting invitation %s: %w", invitation.ID, err)
	}
	return c.refreshGroup(ctx, invitation.GroupID)
}

// RejectGroupInvitation declines an invite.
func (c *Cache) RejectGroupInvitation(
	ctx context.Context,
	invitation model.GroupInvitation,
) error {
	if err := c.gateway.RejectGroupInvitation(ctx, invitation.ID); err != nil {
		return fmt.Errorf("rejecting invitation %s: %w", invitation.ID, err)
	}
	return nil
}

// KickGroupMember removes a member and refetches the group.
func (c *Cache) KickGroupMember(ctx context.Context, groupID, userID string) error {
	c.mu.Lock()
	if c.pending[userID] {
		c.mu.Unlock()
		return fmt.Errorf("operation for %s already underway", userID)
	}
	c.pending[userID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, userID)
		c.mu.Unlock()
	}()

	if err := c.gateway.KickGroupMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("kicking %s from group %s: %w", userID, groupID, err)
	}
	return c.refreshGroup(ctx, groupID)
}

// refreshGroup replaces the cached group record with the server's.
func (c *Cache) refreshGroup(ctx context.Context, groupID string) error {
	group, err := c.gateway.FetchGroup(ctx, groupID)
	if err != nil {
		// Stale membership is tolerable; the next sync corrects it.
		return nil
	}
	return c.store.UpsertGroups(ctx, []model.Group{*group})
}
