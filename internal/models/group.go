package models

// Group is a named set of users, e.g. "administrators" (PostgreSQL).
type Group struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;uniqueIndex"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	ID      uint `json:"id" gorm:"primaryKey"`
	GroupID uint `json:"group_id" gorm:"index;uniqueIndex:ux_group_member,priority:1"`
	UserID  uint `json:"user_id" gorm:"uniqueIndex:ux_group_member,priority:2"`
}
