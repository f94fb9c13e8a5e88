package model

import (
	"time"

	"gorm.io/gorm"
)

// Watcher subscribes a user to updates on a bottle.
type Watcher struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	UserID      int64          `gorm:"index;not null" json:"userId" validate:"gt=0"`
	BottleIndex int64          `gorm:"index;not null" json:"bottleIndex" validate:"gte=0"`
	CreatedAt   time.Time      `gorm:"not null" json:"createdAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deletedAt"`
}

// BeforeSave rejects records that fail their field contracts.
func (w *Watcher) BeforeSave(tx *gorm.DB) error {
	return Validate(w)
}
