package search

import (
	"context"
	"errors"
	"sync"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
)

// Result is the outcome of one search call. Canceled searches carry
// Canceled instead of an error so callers can drop them silently.
type Result struct {
	Query    string
	Users    []model.User
	Err      error
	Canceled bool
}

// Searcher runs search-as-you-type user lookups. Starting a new search
// cancels the in-flight one; only the latest query's result matters.
type Searcher struct {
	gateway remote.Gateway

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSearcher creates a Searcher.
func NewSearcher(gw remote.Gateway) *Searcher {
	return &Searcher{gateway: gw}
}

// Search starts a lookup for query, canceling any previous in-flight
// lookup first. The result arrives on the returned channel, which is
// buffered so an abandoned receiver never leaks the goroutine.
func (s *Searcher) Search(ctx context.Context, query string) <-chan Result {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	ch := make(chan Result, 1)
	go func() {
		defer cancel()

		users, err := s.gateway.SearchUsers(searchCtx, query)
		if err != nil && errors.Is(err, context.Canceled) {
			ch <- Result{Query: query, Canceled: true}
			return
		}
		ch <- Result{Query: query, Users: users, Err: err}
	}()

	return ch
}

// Cancel aborts the in-flight search, if any.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
