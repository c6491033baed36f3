package notifications

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/forumbase/notifyd/internal/models"
)

// maxInlineBody caps the long body when it is prepared for inline display.
const maxInlineBody = 280

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Create persists a notification record and registers it in the global
// index. The record's Datetime is assigned here. Repeated creates for the
// same id overwrite the stored record unless both records carry the same
// pid and the stored importance is strictly greater, in which case the call
// is a legitimate no-op and returns (nil, nil). A pre-create filter hook may
// modify the record or veto it the same way.
func (e *Engine) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n == nil || n.ID == "" {
		return nil, fmt.Errorf("%w: notification id is required", ErrInvalidRequest)
	}
	if n.Importance == 0 {
		n.Importance = models.DefaultImportance
	}
	n.Datetime = e.nowMS()

	existing, err := e.records.GetByID(ctx, n.ID)
	if err != nil {
		return nil, fmt.Errorf("notifications: create %s: %w", n.ID, err)
	}
	if suppressedByImportance(existing, n) {
		return nil, nil
	}

	result := e.bus.Filter(HookCreate, n)
	if result == nil {
		return nil, nil
	}
	if filtered, ok := result.(*models.Notification); ok {
		n = filtered
	}

	if err := e.indexes.AddToGlobal(ctx, n.ID, n.Datetime); err != nil {
		return nil, fmt.Errorf("notifications: create %s: %w", n.ID, err)
	}
	if err := e.records.Upsert(ctx, n); err != nil {
		return nil, fmt.Errorf("notifications: create %s: %w", n.ID, err)
	}

	e.metrics.NotificationsCreated.Inc()
	return n, nil
}

// suppressedByImportance implements the idempotency guard: only records
// referencing the same content item can shadow each other, and only a
// strictly more important stored record wins. Records without a pid always
// overwrite.
func suppressedByImportance(existing, incoming *models.Notification) bool {
	if existing == nil || existing.PID == nil || incoming.PID == nil {
		return false
	}
	return *existing.PID == *incoming.PID && existing.Importance > incoming.Importance
}

// Get fetches and resolves a single notification. A missing id yields
// (nil, nil).
func (e *Engine) Get(ctx context.Context, id string) (*models.Notification, error) {
	list, err := e.GetMultiple(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// GetMultiple fetches notification records in input order, with a nil slot
// for every id that no longer exists. Each found record gets its actor
// summary resolved, its path made absolute and its long body reduced to a
// safe inline form.
func (e *Engine) GetMultiple(ctx context.Context, ids []string) ([]*models.Notification, error) {
	if len(ids) == 0 {
		return []*models.Notification{}, nil
	}

	byID, err := e.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("notifications: get multiple: %w", err)
	}

	actorIDs := make([]uint, 0, len(byID))
	seen := make(map[uint]bool)
	for _, n := range byID {
		if n.From != 0 && !seen[n.From] {
			seen[n.From] = true
			actorIDs = append(actorIDs, n.From)
		}
	}
	actors, err := e.users.GetCompactByIDs(actorIDs)
	if err != nil {
		return nil, fmt.Errorf("notifications: get multiple: %w", err)
	}

	result := make([]*models.Notification, len(ids))
	for i, id := range ids {
		n := byID[id]
		if n == nil {
			continue
		}
		if actor, ok := actors[n.From]; n.From != 0 && ok {
			u := actor
			n.User = &u
		} else {
			// system-authored or deleted actor
			n.User = models.SystemUser()
		}
		n.Path = e.absolutePath(n.Path)
		n.BodyLong = inlineBody(n.BodyLong)
		result[i] = n
	}
	return result, nil
}

// FilterExists returns the subset of ids still present in the global index,
// e.g. to discard stale references held by digest emails.
func (e *Engine) FilterExists(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	return e.indexes.FilterExisting(ctx, ids)
}

// FindRelated scans the recipient's unread index for notifications whose
// mergeId is in the given set and returns their ids.
func (e *Engine) FindRelated(ctx context.Context, mergeIDs []string, userID uint) ([]string, error) {
	if len(mergeIDs) == 0 || userID == 0 {
		return []string{}, nil
	}

	wanted := make(map[string]bool, len(mergeIDs))
	for _, m := range mergeIDs {
		if m != "" {
			wanted[m] = true
		}
	}
	if len(wanted) == 0 {
		return []string{}, nil
	}

	unread, err := e.indexes.UnreadIDs(ctx, userID, -1)
	if err != nil {
		return nil, fmt.Errorf("notifications: find related: %w", err)
	}
	stored, err := e.records.GetMergeIDs(ctx, unread)
	if err != nil {
		return nil, fmt.Errorf("notifications: find related: %w", err)
	}

	related := make([]string, 0, len(unread))
	for _, id := range unread {
		if wanted[stored[id]] {
			related = append(related, id)
		}
	}
	return related, nil
}

// Inbox returns the recipient's merged notification list, newest first:
// up to count unread and count read entries, fetched, resolved and passed
// through the merge engine. Ids whose records were already pruned are
// silently skipped.
func (e *Engine) Inbox(ctx context.Context, userID uint, count int64) ([]*models.Notification, error) {
	unread, err := e.indexes.UnreadIDs(ctx, userID, count)
	if err != nil {
		return nil, fmt.Errorf("notifications: inbox for %d: %w", userID, err)
	}
	read, err := e.indexes.ReadIDs(ctx, userID, count)
	if err != nil {
		return nil, fmt.Errorf("notifications: inbox for %d: %w", userID, err)
	}

	fetched, err := e.GetMultiple(ctx, append(unread, read...))
	if err != nil {
		return nil, err
	}
	for i := range fetched {
		if fetched[i] != nil {
			fetched[i].Read = i >= len(unread)
		}
	}

	merged := e.Merge(fetched)
	inbox := make([]*models.Notification, 0, len(merged))
	for _, n := range merged {
		if n != nil {
			inbox = append(inbox, n)
		}
	}
	sort.SliceStable(inbox, func(i, j int) bool {
		return inbox[i].Datetime > inbox[j].Datetime
	})
	return inbox, nil
}

// absolutePath rewrites a relative link target to an absolute application
// path.
func (e *Engine) absolutePath(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimSuffix(e.opts.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// inlineBody reduces long-form HTML to a safe inline subset: markup is
// stripped and the text truncated.
func inlineBody(body string) string {
	text := htmlTagPattern.ReplaceAllString(body, "")
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxInlineBody {
		return text
	}
	return string(runes[:maxInlineBody]) + "…"
}
