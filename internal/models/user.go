package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	Username   string `json:"username" gorm:"uniqueIndex"`
	Slug       string `json:"slug" gorm:"uniqueIndex"` // URL-safe form of the username
	Email      string `json:"email" gorm:"uniqueIndex"`
	Picture    string `json:"picture"`
}

// UserCompact is the lightweight actor summary attached to fetched
// notifications.
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Slug     string `json:"slug"`
	Picture  string `json:"picture"`
}

// ToCompact returns the compact form of a user.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:       u.ID,
		Username: u.Username,
		Slug:     u.Slug,
		Picture:  u.Picture,
	}
}

// SystemUser is substituted for system-authored or deleted-actor
// notifications.
func SystemUser() *UserCompact {
	return &UserCompact{Username: "system", Slug: "system", Picture: "/assets/images/system.png"}
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
