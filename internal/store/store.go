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

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	SeedRoles(ctx context.Context) error
	ListRoles(ctx context.Context) ([]model.Role, error)

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CurrentOwner(ctx context.Context, bottleIndex int64) (*model.Owner, error)
	CurrentOwners(ctx context.Context, bottleIndexes []int64) (map[int64]model.Owner, error)
	OwnerHistory(ctx context.Context, bottleIndex int64) ([]model.Owner, error)
	OwnedBottles(ctx context.Context, account, ownerType string) ([]model.Owner, error)
	RecycledBottles(ctx context.Context, account string) ([]model.Owner, error)
	TransferOwnership(ctx context.Context, t Transfer) (*TransferResult, error)
	ApplyTransfers(ctx context.Context, transfers []Transfer) ([]int64, error)

	Watch(ctx context.Context, userID, bottleIndex int64) (*model.Watcher, error)
	Unwatch(ctx context.Context, userID, bottleIndex int64) error
	WatchedBottles(ctx context.Context, userID int64) ([]model.Watcher, error)
	Watchers(ctx context.Context, bottleIndex int64) ([]model.Watcher, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID int64, endpoint string) error
	DeleteExpiredSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForBottle(ctx context.Context, bottleIndex int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SeedRoles inserts the registry roles, leaving existing rows untouched.
func (s *gormStore) SeedRoles(ctx context.Context) error {
	roles := model.Roles()
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return fmt.Errorf("seeding roles: %w", err)
	}
	return nil
}

// ListRoles returns the persisted roles ordered by id.
func (s *gormStore) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := s.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	return roles, nil
}

// notFound maps gorm's not-found error onto the shared sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, errs.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
