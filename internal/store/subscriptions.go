package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
)

// PutSubscription creates or refreshes a push subscription keyed by endpoint.
// An endpoint already registered to another user is refused.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PushSubscription
		err := tx.Where("endpoint = ?", sub.Endpoint).Take(&existing).Error
		switch {
		case err == nil && existing.UserID != sub.UserID:
			return fmt.Errorf("subscription endpoint belongs to another user: %w", errs.ErrAlreadyExists)
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("fetching subscription: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("saving subscription: %w", err)
		}
		return nil
	})
}

// GetSubscription returns a subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription owned by the user.
func (s *gormStore) DeleteSubscription(ctx context.Context, userID int64, endpoint string) error {
	res := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("deleting subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription: %w", errs.ErrNotFound)
	}
	return nil
}

// DeleteExpiredSubscription removes a subscription the push service reported gone.
func (s *gormStore) DeleteExpiredSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("deleting expired subscription: %w", err)
	}
	return nil
}

// SubscriptionsForBottle returns the push subscriptions of every user watching a bottle.
func (s *gormStore) SubscriptionsForBottle(ctx context.Context, bottleIndex int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN watchers w ON w.user_id = push_subscriptions.user_id AND w.deleted_at IS NULL").
		Where("w.bottle_index = ?", bottleIndex).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("fetching subscriptions for bottle %d: %w", bottleIndex, err)
	}
	return subs, nil
}
