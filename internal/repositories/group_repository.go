package repositories

import (
	"github.com/forumbase/notifyd/internal/models"
	"gorm.io/gorm"
)

// GroupRepository defines the interface for group membership resolution
type GroupRepository interface {
	GetMemberIDs(name string) ([]uint, error)
}

// PostgresGroupRepository implements GroupRepository for PostgreSQL
type PostgresGroupRepository struct {
	db *gorm.DB
}

// NewPostgresGroupRepository creates a new PostgresGroupRepository
func NewPostgresGroupRepository(db *gorm.DB) *PostgresGroupRepository {
	return &PostgresGroupRepository{db: db}
}

// GetMemberIDs expands a group name into its member user ids. An unknown
// group yields an empty list, not an error.
func (r *PostgresGroupRepository) GetMemberIDs(name string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("groups.name = ?", name).
		Pluck("group_members.user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
