package notifications

import (
	"context"
	"fmt"
)

// pruneBatchSize bounds both the global sweep and the per-recipient pager.
const pruneBatchSize = 500

// Prune runs the two-phase retention sweep: records older than the
// retention window are deleted from the global index and the record store,
// then every recipient's unread/read indices are stripped of entries older
// than the same cutoff. The phases are independent; a recipient's index may
// transiently reference an already-deleted record between them, which
// fetches tolerate. Both phases are idempotent, so redundant runs from
// several scheduler instances are safe and no lock is taken.
func (e *Engine) Prune(ctx context.Context) {
	cutoff := e.retentionCutoff()

	if err := e.pruneGlobal(ctx, cutoff); err != nil {
		e.log.Errorf("global prune failed: %v", err)
	}

	err := e.users.ForEachUserBatch(pruneBatchSize, func(userIDs []uint) error {
		return e.indexes.TrimInboxes(ctx, userIDs, cutoff)
	})
	if err != nil {
		e.log.Errorf("per-recipient prune failed: %v", err)
	}
}

func (e *Engine) pruneGlobal(ctx context.Context, cutoff int64) error {
	ids, err := e.indexes.GlobalOlderThan(ctx, cutoff, pruneBatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if err := e.records.DeleteByIDs(ctx, ids); err != nil {
		return err
	}
	if err := e.indexes.RemoveFromGlobal(ctx, ids); err != nil {
		return err
	}

	e.metrics.NotificationsPruned.Add(float64(len(ids)))
	e.log.WithField("count", len(ids)).Info("pruned expired notifications")
	return nil
}

// Rescind immediately deletes the given notifications and their global
// index entries, e.g. when the action a notification described is undone.
// Per-recipient index residue is left for the lazy sweep; fetching a
// rescinded id meanwhile yields a nil slot.
func (e *Engine) Rescind(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := e.records.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("notifications: rescind: %w", err)
	}
	if err := e.indexes.RemoveFromGlobal(ctx, ids); err != nil {
		return fmt.Errorf("notifications: rescind: %w", err)
	}
	return nil
}
