package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a persisted copy of a realtime event, written alongside
// dispatch so users disconnected at emit time can fetch it later.
type Notification struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64          `gorm:"index:idx_notification_user;not null" json:"user_id"`
	FromUserID int64          `gorm:"not null" json:"from_user_id"`
	Kind       string         `gorm:"size:32;not null" json:"kind"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
