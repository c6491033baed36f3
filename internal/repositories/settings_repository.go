package repositories

import (
	"github.com/forumbase/notifyd/internal/models"
	"gorm.io/gorm"
)

// SettingsRepository defines the interface for notification channel
// preferences
type SettingsRepository interface {
	GetChannelPreference(userID uint, notificationType string) (string, error)
	GetChannelPreferences(userIDs []uint, notificationType string) (map[uint]string, error)
}

// PostgresSettingsRepository implements SettingsRepository for PostgreSQL
type PostgresSettingsRepository struct {
	db *gorm.DB
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository
func NewPostgresSettingsRepository(db *gorm.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// GetChannelPreference returns the user's channel for the given notification
// type. Users without an explicit setting default to in-app.
func (r *PostgresSettingsRepository) GetChannelPreference(userID uint, notificationType string) (string, error) {
	prefs, err := r.GetChannelPreferences([]uint{userID}, notificationType)
	if err != nil {
		return "", err
	}
	return prefs[userID], nil
}

// GetChannelPreferences returns the channel of every given user for the
// notification type, defaulting to in-app where no setting exists.
func (r *PostgresSettingsRepository) GetChannelPreferences(userIDs []uint, notificationType string) (map[uint]string, error) {
	result := make(map[uint]string, len(userIDs))
	for _, id := range userIDs {
		result[id] = models.ChannelInApp
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	var settings []models.NotificationSetting
	err := r.db.Where("user_id IN ? AND type = ?", userIDs, notificationType).Find(&settings).Error
	if err != nil {
		return nil, err
	}
	for i := range settings {
		result[settings[i].UserID] = settings[i].Channel
	}
	return result, nil
}
