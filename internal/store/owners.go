package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bottle-tracking-backend/internal/model"
)

// CurrentOwner returns the active owner record of a bottle.
func (s *gormStore) CurrentOwner(ctx context.Context, bottleIndex int64) (*model.Owner, error) {
	var owner model.Owner
	err := s.db.WithContext(ctx).
		Where("bottle_index = ?", bottleIndex).
		Order("created_at DESC, id DESC").
		First(&owner).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("owner of bottle %d", bottleIndex))
	}
	return &owner, nil
}

// CurrentOwners returns the active owner of each bottle that has one.
func (s *gormStore) CurrentOwners(ctx context.Context, bottleIndexes []int64) (map[int64]model.Owner, error) {
	owners := make(map[int64]model.Owner, len(bottleIndexes))
	if len(bottleIndexes) == 0 {
		return owners, nil
	}

	var rows []model.Owner
	if err := s.db.WithContext(ctx).
		Where("bottle_index IN ?", bottleIndexes).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching current owners: %w", err)
	}
	// Later rows win if a bottle somehow has more than one active record.
	for _, o := range rows {
		owners[o.BottleIndex] = o
	}
	return owners, nil
}

// OwnerHistory returns every owner record of a bottle, including superseded ones, oldest first.
func (s *gormStore) OwnerHistory(ctx context.Context, bottleIndex int64) ([]model.Owner, error) {
	var owners []model.Owner
	if err := s.db.WithContext(ctx).Unscoped().
		Where("bottle_index = ?", bottleIndex).
		Order("created_at, id").
		Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("fetching history of bottle %d: %w", bottleIndex, err)
	}
	return owners, nil
}

// OwnedBottles returns the active records held by an account. An empty
// ownerType matches any type.
func (s *gormStore) OwnedBottles(ctx context.Context, account, ownerType string) ([]model.Owner, error) {
	q := s.db.WithContext(ctx).Where("account = ?", account)
	if ownerType != "" {
		q = q.Where("type = ?", ownerType)
	}
	var owners []model.Owner
	if err := q.Order("bottle_index").Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("fetching bottles of %s: %w", account, err)
	}
	return owners, nil
}

// RecycledBottles returns bottles a producer holds that were once owned by a recycler.
func (s *gormStore) RecycledBottles(ctx context.Context, account string) ([]model.Owner, error) {
	recycled := s.db.Unscoped().Model(&model.Owner{}).
		Select("bottle_index").
		Where("type = ?", model.OwnerTypeRecycler)

	var owners []model.Owner
	if err := s.db.WithContext(ctx).
		Where("account = ? AND type = ?", account, model.OwnerTypeProducer).
		Where("bottle_index IN (?)", recycled).
		Order("bottle_index").
		Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("fetching recycled bottles of %s: %w", account, err)
	}
	return owners, nil
}

// TransferOwnership makes t the only active owner of the bottle.
func (s *gormStore) TransferOwnership(ctx context.Context, t Transfer) (*TransferResult, error) {
	if _, err := newOwner(t); err != nil {
		return nil, err
	}

	var result *TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = transfer(tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyTransfers applies a batch of transfers in time order within one
// transaction and returns the bottles whose owner changed.
func (s *gormStore) ApplyTransfers(ctx context.Context, transfers []Transfer) ([]int64, error) {
	for _, t := range transfers {
		if _, err := newOwner(t); err != nil {
			return nil, fmt.Errorf("bottle %d: %w", t.BottleIndex, err)
		}
	}

	ordered := make([]Transfer, len(transfers))
	copy(ordered, transfers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})

	var changed []int64
	seen := make(map[int64]bool)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range ordered {
			res, err := transfer(tx, t)
			if err != nil {
				return fmt.Errorf("bottle %d: %w", t.BottleIndex, err)
			}
			if res.Changed && !seen[t.BottleIndex] {
				seen[t.BottleIndex] = true
				changed = append(changed, t.BottleIndex)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// transfer soft-deletes every active owner of the bottle and inserts the new one.
func transfer(tx *gorm.DB, t Transfer) (*TransferResult, error) {
	owner, err := newOwner(t)
	if err != nil {
		return nil, err
	}

	var active []model.Owner
	if err := tx.Where("bottle_index = ?", t.BottleIndex).Order("id").Find(&active).Error; err != nil {
		return nil, fmt.Errorf("fetching active owners: %w", err)
	}

	result := &TransferResult{}
	if len(active) > 0 {
		prev := active[len(active)-1]
		result.Previous = &prev
		if len(active) == 1 && prev.Account == t.Account && prev.Type == t.Type {
			result.Owner = prev
			return result, nil
		}
		// Events older than the active ownership never roll it back.
		if owner.CreatedAt.Before(prev.CreatedAt) {
			result.Owner = prev
			return result, nil
		}
		if len(active) > 1 {
			zap.L().Warn("bottle had more than one active owner; superseding all",
				zap.Int64("bottle_index", t.BottleIndex), zap.Int("active", len(active)))
		}
		ids := make([]int64, len(active))
		for i, o := range active {
			ids[i] = o.ID
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.Owner{}).Error; err != nil {
			return nil, fmt.Errorf("releasing previous owner: %w", err)
		}
	}

	if err := tx.Create(&owner).Error; err != nil {
		return nil, fmt.Errorf("creating owner record: %w", err)
	}
	result.Owner = owner
	result.Changed = true
	return result, nil
}

// newOwner builds and validates the record a transfer will insert.
func newOwner(t Transfer) (model.Owner, error) {
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	owner := model.Owner{
		BottleIndex: t.BottleIndex,
		Account:     t.Account,
		Type:        t.Type,
		CreatedAt:   at,
	}
	if err := model.Validate(&owner); err != nil {
		return model.Owner{}, err
	}
	return owner, nil
}
