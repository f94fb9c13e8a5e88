package model

import (
	"time"

	"gorm.io/gorm"
)

// User is an authenticated account holder. Account is matched against Owner.Account.
type User struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:128;not null" json:"name" validate:"required,max=128"`
	Email        string         `gorm:"uniqueIndex;size:256;not null" json:"email" validate:"required,email,max=256"`
	PasswordHash string         `gorm:"not null" json:"-" validate:"required"`
	RoleID       int            `gorm:"index;not null" json:"roleId" validate:"min=1,max=5"`
	Account      string         `gorm:"size:128;index" json:"account" validate:"max=128"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeSave rejects records that fail their field contracts.
func (u *User) BeforeSave(tx *gorm.DB) error {
	return Validate(u)
}

// RoleName returns the canonical role name of the user, or "" for an unknown id.
func (u User) RoleName() string {
	name, _ := RoleName(u.RoleID)
	return name
}
