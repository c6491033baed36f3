package repositories

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis sorted-set keys. Scores are notification datetimes in unix
// milliseconds, so every index is time-ordered.
const globalIndexKey = "notifications"

func unreadKey(userID uint) string {
	return fmt.Sprintf("uid:%d:notifications:unread", userID)
}

func readKey(userID uint) string {
	return fmt.Sprintf("uid:%d:notifications:read", userID)
}

// IndexRepository defines the interface for the global existence index and
// the per-recipient unread/read indices
type IndexRepository interface {
	AddToGlobal(ctx context.Context, id string, datetime int64) error
	RemoveFromGlobal(ctx context.Context, ids []string) error
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
	GlobalOlderThan(ctx context.Context, cutoff int64, limit int64) ([]string, error)
	DeliverToInboxes(ctx context.Context, userIDs []uint, id string, datetime int64) error
	TrimInboxes(ctx context.Context, userIDs []uint, cutoff int64) error
	MoveToRead(ctx context.Context, userID uint, ids []string, scores []int64) error
	MoveToUnread(ctx context.Context, userID uint, id string, score int64) error
	UnreadIDs(ctx context.Context, userID uint, limit int64) ([]string, error)
	ReadIDs(ctx context.Context, userID uint, limit int64) ([]string, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

// RedisIndexRepository implements IndexRepository on Redis sorted sets
type RedisIndexRepository struct {
	rdb *redis.Client
}

// NewRedisIndexRepository creates a new RedisIndexRepository
func NewRedisIndexRepository(rdb *redis.Client) *RedisIndexRepository {
	return &RedisIndexRepository{rdb: rdb}
}

// AddToGlobal records a live notification id in the global existence index.
func (r *RedisIndexRepository) AddToGlobal(ctx context.Context, id string, datetime int64) error {
	return r.rdb.ZAdd(ctx, globalIndexKey, redis.Z{Score: float64(datetime), Member: id}).Err()
}

// RemoveFromGlobal removes ids from the global existence index.
func (r *RedisIndexRepository) RemoveFromGlobal(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.rdb.ZRem(ctx, globalIndexKey, toMembers(ids)...).Err()
}

// FilterExisting returns the subset of ids still present in the global
// index, input order preserved.
func (r *RedisIndexRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	scores, err := r.rdb.ZMScore(ctx, globalIndexKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	existing := make([]string, 0, len(ids))
	for i, score := range scores {
		// scores are unix-ms datetimes, so zero means absent
		if i < len(ids) && score != 0 {
			existing = append(existing, ids[i])
		}
	}
	return existing, nil
}

// GlobalOlderThan returns up to limit ids whose datetime is at or below the
// cutoff, oldest first.
func (r *RedisIndexRepository) GlobalOlderThan(ctx context.Context, cutoff int64, limit int64) ([]string, error) {
	return r.rdb.ZRangeByScore(ctx, globalIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", cutoff),
		Count: limit,
	}).Result()
}

// DeliverToInboxes adds the notification id to every recipient's unread
// index and removes it from their read index, so a re-delivered notification
// becomes unread again. All writes go through one pipeline.
func (r *RedisIndexRepository) DeliverToInboxes(ctx context.Context, userIDs []uint, id string, datetime int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, userID := range userIDs {
			pipe.ZAdd(ctx, unreadKey(userID), redis.Z{Score: float64(datetime), Member: id})
			pipe.ZRem(ctx, readKey(userID), id)
		}
		return nil
	})
	return err
}

// TrimInboxes drops entries older than the cutoff from the unread and read
// indices of every given recipient.
func (r *RedisIndexRepository) TrimInboxes(ctx context.Context, userIDs []uint, cutoff int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	max := fmt.Sprintf("%d", cutoff)
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, userID := range userIDs {
			pipe.ZRemRangeByScore(ctx, unreadKey(userID), "-inf", max)
			pipe.ZRemRangeByScore(ctx, readKey(userID), "-inf", max)
		}
		return nil
	})
	return err
}

// MoveToRead moves ids from the recipient's unread index to its read index,
// keeping the supplied per-id scores. The remove and the add are two index
// writes, not a transaction: a crash in between leaves the id in neither
// index, which the engine accepts (see DESIGN.md).
func (r *RedisIndexRepository) MoveToRead(ctx context.Context, userID uint, ids []string, scores []int64) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]redis.Z, len(ids))
	for i, id := range ids {
		members[i] = redis.Z{Score: float64(scores[i]), Member: id}
	}
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, unreadKey(userID), toMembers(ids)...)
		pipe.ZAdd(ctx, readKey(userID), members...)
		return nil
	})
	return err
}

// MoveToUnread moves an id from the recipient's read index back to unread.
func (r *RedisIndexRepository) MoveToUnread(ctx context.Context, userID uint, id string, score int64) error {
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, readKey(userID), id)
		pipe.ZAdd(ctx, unreadKey(userID), redis.Z{Score: float64(score), Member: id})
		return nil
	})
	return err
}

// UnreadIDs returns up to limit unread ids for the recipient, newest first.
// A non-positive limit returns everything.
func (r *RedisIndexRepository) UnreadIDs(ctx context.Context, userID uint, limit int64) ([]string, error) {
	return r.rdb.ZRevRange(ctx, unreadKey(userID), 0, rangeStop(limit)).Result()
}

// ReadIDs returns up to limit read ids for the recipient, newest first.
func (r *RedisIndexRepository) ReadIDs(ctx context.Context, userID uint, limit int64) ([]string, error) {
	return r.rdb.ZRevRange(ctx, readKey(userID), 0, rangeStop(limit)).Result()
}

func rangeStop(limit int64) int64 {
	if limit <= 0 {
		return -1
	}
	return limit - 1
}

// UnreadCount returns the size of the recipient's unread index.
func (r *RedisIndexRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return r.rdb.ZCard(ctx, unreadKey(userID)).Result()
}

func toMembers(ids []string) []interface{} {
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return members
}
