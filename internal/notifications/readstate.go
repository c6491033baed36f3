package notifications

import (
	"context"
	"fmt"

	"github.com/forumbase/notifyd/internal/models"
)

// markAllReadLimit bounds how many unread entries MarkAllRead picks up.
const markAllReadLimit = 100

// MarkRead moves one notification from the recipient's unread index to its
// read index, together with any other unread notifications sharing its
// mergeId (a merged display entry is read as a whole).
func (e *Engine) MarkRead(ctx context.Context, id string, userID uint) error {
	return e.MarkReadMultiple(ctx, []string{id}, userID)
}

// MarkReadMultiple moves the given ids unread→read for the recipient. The
// requested set is first expanded with currently-unread notifications that
// share a mergeId with any of them. Read-index scores keep each record's
// original datetime so arrival ordering survives the move. Empty input or a
// missing recipient id is a no-op.
//
// The unread-remove and read-add are separate index writes; a crash in
// between can leave an id in neither index. That inconsistency is accepted
// and recovered only by re-delivery.
func (e *Engine) MarkReadMultiple(ctx context.Context, ids []string, userID uint) error {
	if userID == 0 || len(ids) == 0 {
		return nil
	}

	records, err := e.records.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("notifications: mark read for %d: %w", userID, err)
	}

	expanded, err := e.expandWithRelated(ctx, ids, records, userID)
	if err != nil {
		return err
	}

	scores := make([]int64, len(expanded))
	for i, id := range expanded {
		scores[i] = e.readScore(records[id])
	}
	if err := e.indexes.MoveToRead(ctx, userID, expanded, scores); err != nil {
		return fmt.Errorf("notifications: mark read for %d: %w", userID, err)
	}
	return nil
}

// expandWithRelated adds every currently-unread id that shares a mergeId
// with the requested set, fetching any records the caller's lookup missed.
func (e *Engine) expandWithRelated(ctx context.Context, ids []string, records map[string]*models.Notification, userID uint) ([]string, error) {
	mergeIDs := make([]string, 0, len(ids))
	for _, n := range records {
		if n.MergeID != "" {
			mergeIDs = append(mergeIDs, n.MergeID)
		}
	}

	expanded := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			expanded = append(expanded, id)
		}
	}
	if len(mergeIDs) == 0 {
		return expanded, nil
	}

	related, err := e.FindRelated(ctx, mergeIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("notifications: mark read for %d: %w", userID, err)
	}

	missing := make([]string, 0, len(related))
	for _, id := range related {
		if !seen[id] {
			seen[id] = true
			expanded = append(expanded, id)
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fetched, err := e.records.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("notifications: mark read for %d: %w", userID, err)
		}
		for id, n := range fetched {
			records[id] = n
		}
	}
	return expanded, nil
}

// readScore keeps the record's own datetime where known; stale index entries
// whose record is gone fall back to the current time.
func (e *Engine) readScore(n *models.Notification) int64 {
	if n != nil && n.Datetime > 0 {
		return n.Datetime
	}
	return e.nowMS()
}

// MarkUnread moves a notification from the recipient's read index back to
// unread, preserving the record's original datetime when known.
func (e *Engine) MarkUnread(ctx context.Context, id string, userID uint) error {
	if userID == 0 {
		return fmt.Errorf("%w: recipient id is required", ErrInvalidRequest)
	}
	n, err := e.records.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("notifications: mark unread for %d: %w", userID, err)
	}
	if n == nil {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}

	if err := e.indexes.MoveToUnread(ctx, userID, id, e.readScore(n)); err != nil {
		return fmt.Errorf("notifications: mark unread for %d: %w", userID, err)
	}
	return nil
}

// MarkAllRead marks the recipient's most recent unread notifications read.
func (e *Engine) MarkAllRead(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	ids, err := e.indexes.UnreadIDs(ctx, userID, markAllReadLimit)
	if err != nil {
		return fmt.Errorf("notifications: mark all read for %d: %w", userID, err)
	}
	return e.MarkReadMultiple(ctx, ids, userID)
}
