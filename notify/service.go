package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hoshinoya/ponghub/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a notification does not exist or belongs to
// another user.
var ErrNotFound = errors.New("notify: notification not found")

// Service persists notification rows alongside realtime dispatch, so users
// who were offline at emit time can fetch them later. Persistence is
// triggered by handlers next to dispatch, never by the dispatcher itself.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a notify Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Record writes a notification row. Failures are logged and swallowed; a
// missed record must not fail the state transition it accompanies.
func (s *Service) Record(ctx context.Context, userID, fromUserID int64, kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("notification payload marshal failed",
			zap.String("kind", kind), zap.Error(err))
		return
	}
	row := &model.Notification{
		UserID:     userID,
		FromUserID: fromUserID,
		Kind:       kind,
		Payload:    datatypes.JSON(data),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.logger.Error("notification record failed",
			zap.Int64("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// ListFor returns userID's notifications, newest first.
func (s *Service) ListFor(ctx context.Context, userID int64) ([]model.Notification, error) {
	var rows []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// Ack removes a handled notification. Only the owner may acknowledge it.
func (s *Service) Ack(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan deletes notifications created before cutoff and reports
// how many were removed. Run periodically by the scheduler.
func (s *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
