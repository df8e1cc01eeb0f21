package model

import "time"

// NotificationType classifies a feed entry by the signal it came from.
type NotificationType string

const (
	NotificationFriendRequest       NotificationType = "friend_request"
	NotificationGroupInvite         NotificationType = "group_invite"
	NotificationDeadline            NotificationType = "deadline"
	NotificationConfirmationRequest NotificationType = "confirmation_request"
	NotificationEventLike           NotificationType = "event_like"
	NotificationEventComment        NotificationType = "event_comment"
)

// notificationPrefixes maps each type to its identity prefix. The
// resulting ids are stable across refreshes, which is what makes the
// read-state set and feed diffing work.
var notificationPrefixes = map[NotificationType]string{
	NotificationFriendRequest:       "friendreq",
	NotificationGroupInvite:         "groupinvite",
	NotificationDeadline:            "deadline",
	NotificationConfirmationRequest: "confirm",
	NotificationEventLike:           "like",
	NotificationEventComment:        "comment",
}

// NotificationID derives the deterministic feed identity for a record
// of the given type built from the given source-record id. The same
// inputs always produce the same id.
func NotificationID(kind NotificationType, sourceID string) string {
	prefix, ok := notificationPrefixes[kind]
	if !ok {
		prefix = string(kind)
	}
	return prefix + "_" + sourceID
}

// NotificationPayload is the closed set of source records a
// notification can wrap. Consumers switch on the concrete type.
type NotificationPayload interface {
	isNotificationPayload()
}

// FriendRequestPayload wraps an incoming friend request.
type FriendRequestPayload struct {
	Request FriendRequest
}

// GroupInvitePayload wraps a pending group invitation.
type GroupInvitePayload struct {
	Invitation GroupInvitation
}

// TaskPayload wraps a task for deadline and confirmation records.
type TaskPayload struct {
	Task Task
}

// EventPayload wraps a social event for like/comment records.
type EventPayload struct {
	Event Event
}

func (FriendRequestPayload) isNotificationPayload() {}
func (GroupInvitePayload) isNotificationPayload()   {}
func (TaskPayload) isNotificationPayload()          {}
func (EventPayload) isNotificationPayload()         {}

// NotificationRecord is one entry of the aggregated feed. Records are
// rebuilt from scratch on every refresh; only the read-state set
// persists, so Read is derived, never stored on the record.
type NotificationRecord struct {
	// ID is the deterministic identity from NotificationID.
	ID string `json:"id"`

	Type NotificationType `json:"type"`

	// Timestamp governs feed ordering. Deadline records use a
	// synthetic notify-at time of deadline minus one day.
	Timestamp time.Time `json:"timestamp"`

	// Read is derived from the persisted read-id set at refresh time.
	Read bool `json:"read"`

	Payload NotificationPayload `json:"-"`
}
