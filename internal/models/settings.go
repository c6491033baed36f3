package models

// NotificationSetting stores a user's channel preference for one
// notification type (PostgreSQL). Absence of a row means the in-app default.
type NotificationSetting struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  uint   `json:"user_id" gorm:"index;uniqueIndex:ux_setting_user_type,priority:1"`
	Type    string `json:"type" gorm:"size:50;uniqueIndex:ux_setting_user_type,priority:2"`
	Channel string `json:"channel" gorm:"size:20"` // none, in-app, email, in-app-and-email
}

// UserBlock records that UserID has blocked BlockedID.
type UserBlock struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	UserID    uint `json:"user_id" gorm:"index;uniqueIndex:ux_block_pair,priority:1"`
	BlockedID uint `json:"blocked_id" gorm:"uniqueIndex:ux_block_pair,priority:2"`
}
