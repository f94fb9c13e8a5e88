package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
)

// CreateUser inserts a user; emails are unique among live users.
func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	if err := model.Validate(user); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("user %q: %w", user.Email, errs.ErrAlreadyExists)
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user %q: %w", user.Email, errs.ErrAlreadyExists)
			}
			return fmt.Errorf("creating user: %w", err)
		}
		return nil
	})
}

// GetUser returns a live user by id.
func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

// GetUserByEmail returns a live user by email.
func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("user %q", email))
	}
	return &user, nil
}

// ListUsers returns every live user ordered by id.
func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}
