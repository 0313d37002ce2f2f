package friends

import (
	"context"
	"errors"

	"github.com/hoshinoya/ponghub/server/model"
	"gorm.io/gorm"
)

// Store is the persistence contract for relationship rows. Absence of a row
// is reported as (nil, nil), never as an error.
type Store interface {
	// FindByPair returns the row between a and b. With strict=true only the
	// (requester=a, target=b) direction matches; otherwise both orderings do.
	FindByPair(ctx context.Context, a, b int64, strict bool) (*model.Friendship, error)
	Insert(ctx context.Context, f *model.Friendship) error
	UpdateStatus(ctx context.Context, id int64, status int) error
	Delete(ctx context.Context, id int64) error
	// ListWherePair returns every row where userID is either party,
	// optionally filtered by status.
	ListWherePair(ctx context.Context, userID int64, status *int) ([]model.Friendship, error)
}

// GormStore implements Store on a GORM database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByPair(ctx context.Context, a, b int64, strict bool) (*model.Friendship, error) {
	q := s.db.WithContext(ctx)
	if strict {
		q = q.Where("requester_id = ? AND target_id = ?", a, b)
	} else {
		q = q.Where("(requester_id = ? AND target_id = ?) OR (requester_id = ? AND target_id = ?)",
			a, b, b, a)
	}
	var f model.Friendship
	if err := q.First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) Insert(ctx context.Context, f *model.Friendship) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *GormStore) UpdateStatus(ctx context.Context, id int64, status int) error {
	return s.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *GormStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&model.Friendship{}, id).Error
}

func (s *GormStore) ListWherePair(ctx context.Context, userID int64, status *int) ([]model.Friendship, error) {
	q := s.db.WithContext(ctx).
		Where("requester_id = ? OR target_id = ?", userID, userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []model.Friendship
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
