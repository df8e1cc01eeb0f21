package model

import (
	"strings"
	"time"
)

// Difficulty is the effort classification of a task.
type Difficulty string

const (
	DifficultySmall  Difficulty = "small"
	DifficultyMedium Difficulty = "medium"
	DifficultyLarge  Difficulty = "large"
	DifficultyCustom Difficulty = "custom"
)

// PrivacyLevel controls who may see a task. Enforcement happens
// server-side; the client only carries the setting.
type PrivacyLevel string

const (
	PrivacyEveryone    PrivacyLevel = "everyone"
	PrivacyFriendsOnly PrivacyLevel = "friends_only"
	PrivacyGroup       PrivacyLevel = "group"
	PrivacyNoOne       PrivacyLevel = "no_one"
	PrivacyExcept      PrivacyLevel = "except"
)

// PendingTaskPrefix marks task ids that exist only locally and have not
// yet been accepted by the server. Reconciliation never deletes tasks
// carrying this prefix (see sync.Reconciler).
const PendingTaskPrefix = "local-"

// IsPendingTaskID reports whether id follows the local pending-task
// naming convention.
func IsPendingTaskID(id string) bool {
	return strings.HasPrefix(id, PendingTaskPrefix)
}

// Privacy is a task's visibility policy.
type Privacy struct {
	Level PrivacyLevel `json:"level"`

	// GroupID is set when Level is PrivacyGroup.
	GroupID *string `json:"group_id,omitempty"`

	// ExceptIDs lists users excluded when Level is PrivacyExcept.
	ExceptIDs []string `json:"except_ids,omitempty"`
}

// Completion carries the completion and confirmation state of a task.
type Completion struct {
	IsCompleted          bool       `json:"is_completed"`
	ProofURL             string     `json:"proof_url,omitempty"`
	ProofDescription     string     `json:"proof_description,omitempty"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	IsConfirmed          bool       `json:"is_confirmed"`
	ConfirmerID          string     `json:"confirmer_id,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
}

// Flag is an optional colored label attached to a task.
type Flag struct {
	Set   bool   `json:"set"`
	Color string `json:"color,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Task is a to-do item owned by one user. The id is the join key for
// all reconciliation against remote snapshots and must be stable across
// local and remote representations.
type Task struct {
	// ID is the opaque unique identifier. Locally created tasks carry
	// the PendingTaskPrefix until their first successful submission.
	ID string `json:"id"`

	// OwnerID is the user whose list this task lives on.
	OwnerID string `json:"owner_id"`

	// AuthorID is the creator. Differs from OwnerID for group or
	// assigned tasks.
	AuthorID string `json:"author_id"`

	Name        string `json:"name"`
	Description string `json:"description"`

	CreatedAt time.Time  `json:"created_at"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	// GroupID is set when the task belongs to a group.
	GroupID *string `json:"group_id,omitempty"`

	// AssignedIDs lists users the task has been assigned to.
	AssignedIDs []string `json:"assigned_ids,omitempty"`

	Difficulty  Difficulty `json:"difficulty"`
	CustomHours *float64   `json:"custom_hours,omitempty"`

	Completion Completion `json:"completion"`
	Privacy    Privacy    `json:"privacy"`
	Flag       Flag       `json:"flag"`

	// DisplayOrder is the manual sort position within the owner's list.
	DisplayOrder int `json:"display_order"`
}

// DueWithin reports whether the task has a deadline inside the window
// starting at now and is not yet completed.
func (t *Task) DueWithin(now time.Time, window time.Duration) bool {
	if t.Deadline == nil || t.Completion.IsCompleted {
		return false
	}
	d := *t.Deadline
	return !d.Before(now) && d.Before(now.Add(window))
}

// AwaitingConfirmation reports whether the task has been completed but
// still needs someone to confirm it.
func (t *Task) AwaitingConfirmation() bool {
	return t.Completion.IsCompleted &&
		t.Completion.RequiresConfirmation &&
		!t.Completion.IsConfirmed
}
