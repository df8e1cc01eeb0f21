package model

import "time"

// EventType classifies a social/system activity record.
type EventType string

const (
	EventNewTasksAdded        EventType = "new_tasks_added"
	EventNewlyReceived        EventType = "newly_received"
	EventNewlyCompleted       EventType = "newly_completed"
	EventRequiresConfirmation EventType = "requires_confirmation"
	EventStreak               EventType = "n_day_streak"
	EventDeadlineComingUp     EventType = "deadline_coming_up"
)

// EventSize is the display weight of an event.
type EventSize string

const (
	EventSizeSmall  EventSize = "small"
	EventSizeMedium EventSize = "medium"
	EventSizeLarge  EventSize = "large"
)

// Event is a social activity record surfaced on a user's feed. Task
// references are carried as ids and resolved lazily against the store.
type Event struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	TargetUserID string    `json:"target_user_id"`
	Type         EventType `json:"type"`
	Size         EventSize `json:"size"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	TaskIDs    []string `json:"task_ids,omitempty"`
	StreakDays int      `json:"streak_days,omitempty"`

	LikeCount    int      `json:"like_count"`
	CommentCount int      `json:"comment_count"`
	LikedByIDs   []string `json:"liked_by_ids,omitempty"`
}

// Expired reports whether the event's expiry has passed.
func (e *Event) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && e.ExpiresAt.Before(now)
}
