package repositories

import (
	"github.com/forumbase/notifyd/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetUserByID(id uint) (*models.User, error)
	GetCompactByIDs(ids []uint) (map[uint]models.UserCompact, error)
	GetEmailsByIDs(ids []uint) (map[uint]string, error)
	ForEachUserBatch(batchSize int, fn func(ids []uint) error) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetUserByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCompactByIDs retrieves lightweight user summaries keyed by user ID.
// Unknown ids are simply absent from the result map.
func (r *PostgresUserRepository) GetCompactByIDs(ids []uint) (map[uint]models.UserCompact, error) {
	result := make(map[uint]models.UserCompact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = users[i].ToCompact()
	}
	return result, nil
}

// GetEmailsByIDs retrieves user email addresses keyed by user ID.
func (r *PostgresUserRepository) GetEmailsByIDs(ids []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := r.db.Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email != "" {
			result[users[i].ID] = users[i].Email
		}
	}
	return result, nil
}

// ForEachUserBatch iterates the whole user population in id-ordered batches
// and invokes fn for each batch. Iteration stops on the first fn error.
func (r *PostgresUserRepository) ForEachUserBatch(batchSize int, fn func(ids []uint) error) error {
	if batchSize < 1 {
		batchSize = 500
	}

	var lastID uint
	for {
		var ids []uint
		err := r.db.Model(&models.User{}).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := fn(ids); err != nil {
			return err
		}
		lastID = ids[len(ids)-1]
	}
}
