package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
)

// Watch subscribes a user to a bottle. Watching an already watched bottle
// returns the active record.
func (s *gormStore) Watch(ctx context.Context, userID, bottleIndex int64) (*model.Watcher, error) {
	watcher := model.Watcher{UserID: userID, BottleIndex: bottleIndex}
	if err := model.Validate(&watcher); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Watcher
		err := tx.Where("user_id = ? AND bottle_index = ?", userID, bottleIndex).First(&existing).Error
		if err == nil {
			watcher = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking watcher: %w", err)
		}
		if err := tx.Create(&watcher).Error; err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &watcher, nil
}

// Unwatch soft-deletes the user's active watcher on a bottle.
func (s *gormStore) Unwatch(ctx context.Context, userID, bottleIndex int64) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND bottle_index = ?", userID, bottleIndex).
		Delete(&model.Watcher{})
	if res.Error != nil {
		return fmt.Errorf("deleting watcher: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("watcher of bottle %d: %w", bottleIndex, errs.ErrNotFound)
	}
	return nil
}

// WatchedBottles returns the user's active watchers ordered by bottle.
func (s *gormStore) WatchedBottles(ctx context.Context, userID int64) ([]model.Watcher, error) {
	var watchers []model.Watcher
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("bottle_index").
		Find(&watchers).Error; err != nil {
		return nil, fmt.Errorf("fetching watched bottles: %w", err)
	}
	return watchers, nil
}

// Watchers returns the active watchers of a bottle.
func (s *gormStore) Watchers(ctx context.Context, bottleIndex int64) ([]model.Watcher, error) {
	var watchers []model.Watcher
	if err := s.db.WithContext(ctx).
		Where("bottle_index = ?", bottleIndex).
		Order("id").
		Find(&watchers).Error; err != nil {
		return nil, fmt.Errorf("fetching watchers of bottle %d: %w", bottleIndex, err)
	}
	return watchers, nil
}
