package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/search"
	"github.com/taskmate/taskmate/tests/testutil"
)

func receive(t *testing.T, ch <-chan search.Result) search.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for search result")
		return search.Result{}
	}
}

func TestSearchDeliversResult(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Users["u1"] = model.User{ID: "u1", Handle: "alice"}

	s := search.NewSearcher(gw)
	result := receive(t, s.Search(context.Background(), "ali"))

	if result.Err != nil {
		t.Fatalf("search: %v", result.Err)
	}
	if result.Query != "ali" || len(result.Users) != 1 {
		t.Errorf("result = %+v, want one user for query ali", result)
	}
}

func TestSearchReportsError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.UserErr = errors.New("backend down")

	s := search.NewSearcher(gw)
	result := receive(t, s.Search(context.Background(), "x"))

	if result.Err == nil {
		t.Fatal("expected error result")
	}
	if result.Canceled {
		t.Error("gateway failure reported as cancellation")
	}
}

func TestNewSearchCancelsPrevious(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Users["u1"] = model.User{ID: "u1", Handle: "alice"}

	s := search.NewSearcher(gw)
	ctx := context.Background()

	first := s.Search(ctx, "a")
	second := s.Search(ctx, "ab")

	r2 := receive(t, second)
	if r2.Err != nil || r2.Query != "ab" {
		t.Errorf("latest search failed: %+v", r2)
	}

	// The first search either finished before the cancel landed or
	// comes back marked canceled; it must never carry an error.
	r1 := receive(t, first)
	if r1.Err != nil {
		t.Errorf("superseded search returned error: %+v", r1)
	}
}

func TestCancelAbortsInFlightSearch(t *testing.T) {
	gw := testutil.NewFakeGateway()
	s := search.NewSearcher(gw)

	ch := s.Search(context.Background(), "query")
	s.Cancel()

	// The result arrives either way; a canceled run is flagged.
	result := receive(t, ch)
	if result.Err != nil {
		t.Errorf("canceled search returned error: %+v", result)
	}
}
