package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// lastRefreshKey is the sync_state key holding the time of the last
// successful feed refresh.
const lastRefreshKey = "notifications.last_refresh"

// deadlineNotifyOffset is subtracted from a task's deadline to form
// the sort timestamp of its deadline notification. It governs ordering
// only; the lookahead window governs visibility.
const deadlineNotifyOffset = 24 * time.Hour

// Feed is one published aggregation result.
type Feed struct {
	Records     []model.NotificationRecord
	UnreadCount int
	RefreshedAt time.Time
}

// Aggregator polls independent remote signal sources, normalizes each
// record under a deterministic identity, merges the persisted
// read-state set, and publishes a single sorted feed. Individual
// source failures contribute zero records; the aggregator itself never
// fails a refresh outright once a session exists.
type Aggregator struct {
	gateway   remote.Gateway
	store     store.Store
	lookahead time.Duration
	minAge    time.Duration

	mu   sync.Mutex
	feed Feed

	// refreshGen orders concurrent refreshes so only the most recent
	// call's result is published; stale results are discarded.
	refreshGen   uint64
	publishedGen uint64
}

// NewAggregator creates an Aggregator. lookaheadDays is the deadline
// visibility window; minRefreshAge drives ShouldRefresh.
func NewAggregator(
	gw remote.Gateway,
	s store.Store,
	lookaheadDays int,
	minRefreshAge time.Duration,
) *Aggregator {
	if lookaheadDays <= 0 {
		lookaheadDays = 3
	}
	if minRefreshAge <= 0 {
		minRefreshAge = 900 * time.Second
	}
	return &Aggregator{
		gateway:   gw,
		store:     s,
		lookahead: time.Duration(lookaheadDays) * 24 * time.Hour,
		minAge:    minRefreshAge,
	}
}

// Refresh rebuilds the notification feed from all sources and
// publishes it, unless a newer refresh has published meanwhile.
// Returns the feed this call computed either way.
func (a *Aggregator) Refresh(ctx context.Context) (Feed, error) {
	current, err := a.store.GetCurrentUser(ctx)
	if err != nil {
		return Feed{}, fmt.Errorf("loading current user: %w", err)
	}
	if current == nil {
		return Feed{}, fmt.Errorf("no session established")
	}

	a.mu.Lock()
	a.refreshGen++
	gen := a.refreshGen
	a.mu.Unlock()

	now := time.Now().UTC()
	records := a.collect(ctx, current.ID, now)

	readIDs, err := a.store.GetReadNotificationIDs(ctx)
	if err != nil {
		// Without the read set every record would flash unread; keep
		// the previous feed instead.
		return a.Feed(), fmt.Errorf("loading read state: %w", err)
	}

	unread := 0
	for i := range records {
		records[i].Read = readIDs[records[i].ID]
		if !records[i].Read {
			unread++
		}
	}

	// Most recent first; ties break on id so repeated refreshes are
	// stable.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	feed := Feed{
		Records:     records,
		UnreadCount: unread,
		RefreshedAt: now,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen < a.refreshGen {
		// A newer refresh started after this one; let it win.
		return feed, nil
	}
	if gen <= a.publishedGen {
		return feed, nil
	}
	a.publishedGen = gen
	a.feed = feed

	if err := a.store.SetSyncValue(ctx, lastRefreshKey,
		now.Format(time.RFC3339)); err != nil {
		return feed, fmt.Errorf("persisting refresh time: %w", err)
	}
	return feed, nil
}

// collect pulls all five sources concurrently. A failed source simply
// contributes nothing for this pass.
func (a *Aggregator) collect(
	ctx context.Context,
	currentUserID string,
	now time.Time,
) []model.NotificationRecord {
	slots := make([][]model.NotificationRecord, 5)

	var wg sync.WaitGroup
	run := func(slot int, f func() []model.NotificationRecord) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[slot] = f()
		}()
	}

	run(0, func() []model.NotificationRecord {
		return a.friendRequestRecords(ctx)
	})
	run(1, func() []model.NotificationRecord {
		return a.groupInviteRecords(ctx)
	})
	run(2, func() []model.NotificationRecord {
		return a.deadlineRecords(ctx, currentUserID, now)
	})
	run(3, func() []model.NotificationRecord {
		return a.confirmationRecords(ctx, currentUserID)
	})
	run(4, func() []model.NotificationRecord {
		return a.eventRecords(ctx, currentUserID, now)
	})
	wg.Wait()

	var records []model.NotificationRecord
	for _, slot := range slots {
		records = append(records, slot...)
	}
	return records
}

func (a *Aggregator) friendRequestRecords(
	ctx context.Context,
) []model.NotificationRecord {
	requests, err := a.gateway.FetchFriendRequests(ctx, model.RequestIncoming)
	if err != nil {
		return nil
	}

	records := make([]model.NotificationRecord, 0, len(requests))
	for _, req := range requests {
		records = append(records, model.NotificationRecord{
			ID:        model.NotificationID(model.NotificationFriendRequest, req.ID),
			Type:      model.NotificationFriendRequest,
			Timestamp: req.CreatedAt,
			Payload:   model.FriendRequestPayload{Request: req},
		})
	}
	return records
}

func (a *Aggregator) groupInviteRecords(
	ctx context.Context,
) []model.NotificationRecord {
	invitations, err := a.gateway.FetchGroupInvitations(ctx)
	if err != nil {
		return nil
	}

	records := make([]model.NotificationRecord, 0, len(invitations))
	for _, inv := range invitations {
		records = append(records, model.NotificationRecord{
			ID:        model.NotificationID(model.NotificationGroupInvite, inv.ID),
			Type:      model.NotificationGroupInvite,
			Timestamp: inv.CreatedAt,
			Payload:   model.GroupInvitePayload{Invitation: inv},
		})
	}
	return records
}

// deadlineRecords scans the current user's cached tasks, not the
// remote, for incomplete tasks due inside the lookahead window.
func (a *Aggregator) deadlineRecords(
	ctx context.Context,
	currentUserID string,
	now time.Time,
) []model.NotificationRecord {
	tasks, err := a.store.GetTasksByOwner(ctx, currentUserID)
	if err != nil {
		return nil
	}

	var records []model.NotificationRecord
	for _, t := range tasks {
		if !t.DueWithin(now, a.lookahead) {
			continue
		}
		records = append(records, model.NotificationRecord{
			ID:        model.NotificationID(model.NotificationDeadline, t.ID),
			Type:      model.NotificationDeadline,
			Timestamp: t.Deadline.Add(-deadlineNotifyOffset),
			Payload:   model.TaskPayload{Task: t},
		})
	}
	return records
}

// confirmationRecords scans the local cache for completed tasks the
// current user authored for someone else that still await the author's
// confirmation.
func (a *Aggregator) confirmationRecords(
	ctx context.Context,
	currentUserID string,
) []model.NotificationRecord {
	completed := true
	tasks, err := a.store.GetTasks(ctx, store.TaskFilter{Completed: &completed})
	if err != nil {
		return nil
	}

	var records []model.NotificationRecord
	for _, t := range tasks {
		if !t.AwaitingConfirmation() {
			continue
		}
		if t.AuthorID != currentUserID || t.OwnerID == currentUserID {
			continue
		}
		records = append(records, model.NotificationRecord{
			ID:        model.NotificationID(model.NotificationConfirmationRequest, t.ID),
			Type:      model.NotificationConfirmationRequest,
			Timestamp: t.CreatedAt,
			Payload:   model.TaskPayload{Task: t},
		})
	}
	return records
}

// eventRecords pulls the current user's own events and emits a record
// per nonzero like counter and per nonzero comment counter. Fetched
// events are also cached and expired ones swept, so the rest of the
// engine sees a fresh event table.
func (a *Aggregator) eventRecords(
	ctx context.Context,
	currentUserID string,
	now time.Time,
) []model.NotificationRecord {
	events, err := a.gateway.FetchEvents(ctx, currentUserID)
	if err != nil {
		return nil
	}

	if err := a.store.UpsertEvents(ctx, events); err == nil {
		_, _ = a.store.DeleteExpiredEvents(ctx, now)
	}

	var records []model.NotificationRecord
	for _, e := range events {
		if e.Expired(now) {
			continue
		}
		if e.LikeCount > 0 {
			records = append(records, model.NotificationRecord{
				ID:        model.NotificationID(model.NotificationEventLike, e.ID),
				Type:      model.NotificationEventLike,
				Timestamp: e.CreatedAt,
				Payload:   model.EventPayload{Event: e},
			})
		}
		if e.CommentCount > 0 {
			records = append(records, model.NotificationRecord{
				ID:        model.NotificationID(model.NotificationEventComment, e.ID),
				Type:      model.NotificationEventComment,
				Timestamp: e.CreatedAt,
				Payload:   model.EventPayload{Event: e},
			})
		}
	}
	return records
}

// Feed returns a copy of the most recently published feed.
func (a *Aggregator) Feed() Feed {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]model.NotificationRecord, len(a.feed.Records))
	copy(records, a.feed.Records)
	return Feed{
		Records:     records,
		UnreadCount: a.feed.UnreadCount,
		RefreshedAt: a.feed.RefreshedAt,
	}
}

// MarkAsRead records one notification id as read. Returns true when
// the call changed state and false when the id was already read, so
// callers can skip redundant work.
func (a *Aggregator) MarkAsRead(ctx context.Context, id string) (bool, error) {
	changed, err := a.store.MarkNotificationRead(ctx, id)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.feed.Records {
		if a.feed.Records[i].ID == id && !a.feed.Records[i].Read {
			a.feed.Records[i].Read = true
			a.feed.UnreadCount--
		}
	}
	return true, nil
}

// MarkAllAsRead records every record of the published feed as read and
// returns the number of records that changed state. The unread count
// is always zero afterward.
func (a *Aggregator) MarkAllAsRead(ctx context.Context) (int, error) {
	a.mu.Lock()
	ids := make([]string, len(a.feed.Records))
	for i, r := range a.feed.Records {
		ids[i] = r.ID
	}
	a.mu.Unlock()

	changed, err := a.store.MarkNotificationsRead(ctx, ids)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.feed.Records {
		a.feed.Records[i].Read = true
	}
	a.feed.UnreadCount = 0
	return changed, nil
}

// RemoveNotification drops one record from the published feed without
// touching the persisted read-state set. Used once the user has acted
// on the underlying request.
func (a *Aggregator) RemoveNotification(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, r := range a.feed.Records {
		if r.ID != id {
			continue
		}
		if !r.Read {
			a.feed.UnreadCount--
		}
		a.feed.Records = append(a.feed.Records[:i], a.feed.Records[i+1:]...)
		return
	}
}

// UnreadCount returns the unread count of the published feed.
func (a *Aggregator) UnreadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feed.UnreadCount
}

// ShouldRefresh reports whether no refresh has ever happened or the
// last one is older than the configured minimum age. Callers use it to
// trigger background refreshes opportunistically.
func (a *Aggregator) ShouldRefresh(ctx context.Context) bool {
	raw, err := a.store.GetSyncValue(ctx, lastRefreshKey)
	if err != nil || raw == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return time.Since(last) > a.minAge
}
