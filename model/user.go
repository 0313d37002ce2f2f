package model

import "time"

// User presence states.
const (
	StatusOffline = 0
	StatusOnline  = 1
	StatusInGame  = 2
)

// User represents a platform account.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Avatar       string     `gorm:"size:255" json:"avatar"`
	Status       int        `gorm:"default:0" json:"status"` // 0=offline 1=online 2=in-game
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"last_login_ip"`
}
