package model

import "time"

// RequestDirection distinguishes friend requests sent to the current
// user from requests the current user has sent.
type RequestDirection string

const (
	RequestIncoming RequestDirection = "incoming"
	RequestOutgoing RequestDirection = "outgoing"
)

// FriendRequest is a pending friendship between two users.
type FriendRequest struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupInvitation is a pending invite of a user into a group.
type GroupInvitation struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	GroupName string    `json:"group_name"`
	InviterID string    `json:"inviter_id"`
	InviteeID string    `json:"invitee_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a single reply on an event.
type Comment struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
