package notifications

import (
	"strconv"
	"strings"

	"github.com/forumbase/notifyd/internal/models"
)

// MergeStrategy collapses one partition of notifications (same group key and
// differentiator, at least two entries, input order preserved) into a single
// display entry. It returns the representative; the engine drops the rest.
type MergeStrategy func(partition []*models.Notification) *models.Notification

// RegisterMergeStrategy binds a mergeId group key to a strategy. Register
// strategies during wiring, before the engine serves traffic.
func (e *Engine) RegisterMergeStrategy(groupKey string, strategy MergeStrategy) {
	e.strategies[groupKey] = strategy
}

// Group keys merged by default, with the localization key used for the
// rewritten body.
func registerDefaultStrategies(e *Engine) {
	for groupKey, tokenKey := range map[string]string{
		"follow": "user-started-following-you",
		"reply":  "user-posted-to",
		"upvote": "upvoted-your-post-in",
		"flag":   "user-flagged-post-in",
	} {
		e.RegisterMergeStrategy(groupKey, ActorAggregation(tokenKey))
	}
}

// Merge collapses notifications that share a mergeId group into single
// display entries. The input may contain nil slots (already-pruned records);
// they pass through untouched. Merge is pure with respect to the index
// stores, so calling it with partial subsets of a recipient's notifications
// is safe.
func (e *Engine) Merge(notifications []*models.Notification) []*models.Notification {
	if len(notifications) < 2 {
		return e.applyMergeHook(notifications)
	}

	dropped := make(map[string]bool)
	for groupKey, strategy := range e.strategies {
		var isolated []*models.Notification
		for _, n := range notifications {
			if n != nil && !dropped[n.ID] && matchesGroup(n.MergeID, groupKey) {
				isolated = append(isolated, n)
			}
		}
		if len(isolated) < 2 {
			continue
		}

		// A group key can be shared across unrelated targets; merge only
		// within one differentiator.
		partitions := make(map[string][]*models.Notification)
		var order []string
		for _, n := range isolated {
			d := differentiator(n.MergeID)
			if _, ok := partitions[d]; !ok {
				order = append(order, d)
			}
			partitions[d] = append(partitions[d], n)
		}

		for _, d := range order {
			partition := partitions[d]
			if len(partition) < 2 {
				continue
			}
			representative := strategy(partition)
			if representative == nil {
				continue
			}
			for _, n := range partition {
				if n.ID != representative.ID {
					dropped[n.ID] = true
				}
			}
		}
	}

	result := make([]*models.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n == nil || !dropped[n.ID] {
			result = append(result, n)
		}
	}
	return e.applyMergeHook(result)
}

func (e *Engine) applyMergeHook(notifications []*models.Notification) []*models.Notification {
	filtered := e.bus.Filter(HookMerge, notifications)
	if list, ok := filtered.([]*models.Notification); ok {
		return list
	}
	return notifications
}

// ActorAggregation is the default merge strategy: the chronologically first
// entry represents the partition, its short body is rewritten as a
// localization token over the distinct actor usernames, and its path is
// bumped to the most recent entry's path.
func ActorAggregation(tokenKey string) MergeStrategy {
	return func(partition []*models.Notification) *models.Notification {
		representative := partition[0]
		latest := partition[0]
		for _, n := range partition[1:] {
			if n.Datetime < representative.Datetime {
				representative = n
			}
			if n.Datetime > latest.Datetime {
				latest = n
			}
		}

		usernames := distinctUsernames(partition)
		title := partitionTitle(partition)

		switch {
		case len(usernames) == 2:
			args := []string{usernames[0], usernames[1]}
			if title != "" {
				args = append(args, EscapeTitle(title))
			}
			representative.BodyShort = Token{Namespace: "notifications", Key: tokenKey + "-dual", Args: args}.String()
		case len(usernames) > 2:
			args := []string{usernames[0], usernames[1], strconv.Itoa(len(usernames) - 2)}
			if title != "" {
				args = append(args, EscapeTitle(title))
			}
			representative.BodyShort = Token{Namespace: "notifications", Key: tokenKey + "-multiple", Args: args}.String()
		}

		representative.Path = latest.Path
		return representative
	}
}

// matchesGroup reports whether a mergeId belongs to the group key, with or
// without a differentiator suffix.
func matchesGroup(mergeID, groupKey string) bool {
	return mergeID == groupKey || strings.HasPrefix(mergeID, groupKey+"|")
}

// differentiator extracts the substring after the first "|"; mergeIds
// without one share the empty sentinel.
func differentiator(mergeID string) string {
	if i := strings.Index(mergeID, "|"); i >= 0 {
		return mergeID[i+1:]
	}
	return ""
}

func distinctUsernames(partition []*models.Notification) []string {
	seen := make(map[string]bool, len(partition))
	names := make([]string, 0, len(partition))
	for _, n := range partition {
		if n.User == nil || n.User.Username == "" {
			continue
		}
		if !seen[n.User.Username] {
			seen[n.User.Username] = true
			names = append(names, n.User.Username)
		}
	}
	return names
}

func partitionTitle(partition []*models.Notification) string {
	for _, n := range partition {
		if n.TopicTitle != "" {
			return n.TopicTitle
		}
	}
	return ""
}
