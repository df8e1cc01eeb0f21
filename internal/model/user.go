package model

import "time"

// User is a cached account record. Relationship id lists are one-sided
// references kept for fast membership lookups; the authoritative copy
// lives on the server and is replaced wholesale on relationship refresh.
type User struct {
	// ID is the opaque globally unique identifier.
	ID string `json:"id"`

	// Handle is the mutable, server-unique username.
	Handle string `json:"handle"`

	Bio             string `json:"bio"`
	ProfileColor    string `json:"profile_color"`
	ProfileImageURL string `json:"profile_image_url"`

	// FriendIDs lists confirmed friends.
	FriendIDs []string `json:"friend_ids,omitempty"`

	// IncomingRequestIDs and OutgoingRequestIDs list pending friend
	// request ids by direction. The three lists are disjoint.
	IncomingRequestIDs []string `json:"incoming_request_ids,omitempty"`
	OutgoingRequestIDs []string `json:"outgoing_request_ids,omitempty"`

	// IsCurrent marks the signed-in account. At most one cached user
	// has this set; the store enforces it on SetCurrentUser.
	IsCurrent bool `json:"is_current"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
