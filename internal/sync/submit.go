package sync

import (
	"context"
	"fmt"
)

// FlushPending submits the owner's locally created tasks that still
// carry pending ids. On success the local rows are rewritten to the
// server-assigned ids in one transaction, after which normal
// reconciliation governs them. Returns the number of tasks flushed.
func (c *Coordinator) FlushPending(
	ctx context.Context,
	ownerID string,
) (int, error) {
	pending, err := c.store.GetPendingTasks(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("loading pending tasks for %s: %w", ownerID, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	serverIDs, err := c.gateway.SubmitTasksBatch(ctx, pending)
	if err != nil {
		// The tasks keep their pending ids and stay exempt from
		// reconciliation deletes until the next flush attempt.
		return 0, fmt.Errorf("submitting pending tasks for %s: %w", ownerID, err)
	}

	mapping := make(map[string]string, len(pending))
	for i, t := range pending {
		mapping[t.ID] = serverIDs[i]
	}

	if err := c.store.ReplaceTaskIDs(ctx, mapping); err != nil {
		return 0, fmt.Errorf("rewriting pending task ids for %s: %w", ownerID, err)
	}
	return len(pending), nil
}
