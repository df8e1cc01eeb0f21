package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/taskmate/taskmate/internal/notify"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// State represents the current state of the background sync loop.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

// Status holds the sync state of the poller.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// Result is sent on the poller's result channel after each pass.
type Result struct {
	// Reconciled maps owner ids to their reconciliation summaries.
	Reconciled map[string]ReconcileResult

	// Flushed is the number of pending tasks submitted this pass.
	Flushed int

	// UnreadCount is the notification badge count after the pass, -1
	// when the feed was not refreshed.
	UnreadCount int

	Error error

	// AuthExpired is set when the failure was a rejected session
	// token; callers should prompt for re-authentication.
	AuthExpired bool
}

// fetchTimeout is the maximum time allowed for a single sync pass.
const fetchTimeout = 30 * time.Second

// Poller periodically syncs the current user's and their friends' task
// lists, flushes pending submissions, and refreshes the notification
// feed when it has gone stale.
type Poller struct {
	store       store.Store
	coordinator *Coordinator
	aggregator  *notify.Aggregator
	interval    time.Duration

	resultCh  chan Result
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// NewPoller creates a Poller. A non-positive interval falls back to
// two minutes.
func NewPoller(
	s store.Store,
	c *Coordinator,
	a *notify.Aggregator,
	interval time.Duration,
) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Poller{
		store:       s,
		coordinator: c,
		aggregator:  a,
		interval:    interval,
		resultCh:    make(chan Result, 16),
		triggerCh:   make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the polling goroutine. Calling Start twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// Trigger requests an immediate sync pass without blocking.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A pass is already queued.
	}
}

// Results returns the channel carrying per-pass results.
func (p *Poller) Results() <-chan Result {
	return p.resultCh
}

// Status returns the poller's current status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// loop runs the polling cycle until Stop is called.
func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Do an initial pass immediately.
	p.syncOnce()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.syncOnce()
		case <-p.triggerCh:
			p.syncOnce()
		}
	}
}

// syncOnce performs a single pass: flush pending tasks, sync the
// current user's and friends' task lists, and opportunistically
// refresh the notification feed.
func (p *Poller) syncOnce() {
	p.setStatus(StateRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	current, err := p.store.GetCurrentUser(ctx)
	if err != nil || current == nil {
		// No session yet; nothing to sync.
		p.setStatus(StateIdle, nil)
		return
	}

	var result Result

	flushed, err := p.coordinator.FlushPending(ctx, current.ID)
	if err != nil {
		// Pending tasks survive a failed flush; carry on with the
		// rest of the pass.
		result.Error = err
	}
	result.Flushed = flushed

	ids := append([]string{current.ID}, current.FriendIDs...)
	reconciled, err := p.coordinator.SyncTasks(ctx, ids, current.ID)
	if err != nil {
		p.setStatus(StateError, err)
		p.sendResult(Result{
			Error:       err,
			AuthExpired: remote.IsAuthError(err),
			UnreadCount: -1,
		})
		return
	}
	result.Reconciled = reconciled

	result.UnreadCount = -1
	if p.aggregator != nil && p.aggregator.ShouldRefresh(ctx) {
		if feed, err := p.aggregator.Refresh(ctx); err == nil {
			result.UnreadCount = feed.UnreadCount
		}
	}

	p.setStatus(StateIdle, nil)
	p.sendResult(result)
}

// setStatus updates the poller status.
func (p *Poller) setStatus(state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == StateIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a Result on the result channel without blocking.
func (p *Poller) sendResult(r Result) {
	select {
	case p.resultCh <- r:
	default:
		// Drop if the channel is full to avoid blocking the poller.
	}
}
