package model

import "time"

// Friendship statuses.
const (
	FriendshipPending  = 0
	FriendshipAccepted = 1
)

// Friendship is one relationship row per unordered user pair.
// RequesterID/TargetID keep the direction of the original request even after
// acceptance, so "requests I sent" and "requests sent to me" stay
// distinguishable. At most one row may exist for a pair; the friends service
// checks both orderings before inserting.
type Friendship struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64     `gorm:"index:idx_friendship_pair;not null" json:"requester_id"`
	TargetID    int64     `gorm:"index:idx_friendship_pair;not null" json:"target_id"`
	Status      int       `gorm:"default:0" json:"status"` // 0=pending 1=accepted
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
