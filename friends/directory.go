package friends

import (
	"context"

	"github.com/hoshinoya/ponghub/server/model"
	"gorm.io/gorm"
)

// Directory resolves user ids to display names for confirmation messages.
// Lookups are best-effort; a failure never blocks a state transition.
type Directory interface {
	FindUsername(ctx context.Context, userID int64) (string, error)
}

// GormDirectory implements Directory on the users table.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a GormDirectory.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) FindUsername(ctx context.Context, userID int64) (string, error) {
	var user model.User
	if err := d.db.WithContext(ctx).Select("username").First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Username, nil
}
