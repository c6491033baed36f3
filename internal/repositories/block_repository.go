package repositories

import (
	"github.com/forumbase/notifyd/internal/models"
	"gorm.io/gorm"
)

// BlockRepository defines the interface for block list lookups
type BlockRepository interface {
	FilterBlocked(actorID uint, userIDs []uint) ([]uint, error)
}

// PostgresBlockRepository implements BlockRepository for PostgreSQL
type PostgresBlockRepository struct {
	db *gorm.DB
}

// NewPostgresBlockRepository creates a new PostgresBlockRepository
func NewPostgresBlockRepository(db *gorm.DB) *PostgresBlockRepository {
	return &PostgresBlockRepository{db: db}
}

// FilterBlocked removes users who have blocked the actor from the given
// list, preserving order.
func (r *PostgresBlockRepository) FilterBlocked(actorID uint, userIDs []uint) ([]uint, error) {
	if actorID == 0 || len(userIDs) == 0 {
		return userIDs, nil
	}

	var blockers []uint
	err := r.db.Model(&models.UserBlock{}).
		Where("blocked_id = ? AND user_id IN ?", actorID, userIDs).
		Pluck("user_id", &blockers).Error
	if err != nil {
		return nil, err
	}
	if len(blockers) == 0 {
		return userIDs, nil
	}

	blocked := make(map[uint]bool, len(blockers))
	for _, id := range blockers {
		blocked[id] = true
	}
	filtered := make([]uint, 0, len(userIDs))
	for _, id := range userIDs {
		if !blocked[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}
