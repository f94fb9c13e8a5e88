package model

import (
	"time"

	"gorm.io/gorm"
)

// Ownership types an Owner record can carry.
const (
	OwnerTypeProducer          = "producer"
	OwnerTypeSecondaryProducer = "secondary_producer"
	OwnerTypeConsumer          = "consumer"
	OwnerTypeRecycler          = "recycler"
)

// Owner assigns a bottle to an account. Superseded rows are soft-deleted.
type Owner struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	BottleIndex int64          `gorm:"index;not null" json:"bottleIndex" validate:"gte=0"`
	Account     string         `gorm:"size:128;index;not null" json:"account" validate:"required,max=128"`
	Type        string         `gorm:"size:32;not null" json:"type" validate:"required,oneof=producer secondary_producer consumer recycler"`
	CreatedAt   time.Time      `gorm:"not null" json:"createdAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deletedAt"`
}

// BeforeSave rejects records that fail their field contracts.
func (o *Owner) BeforeSave(tx *gorm.DB) error {
	return Validate(o)
}

// Active reports whether the record is the current ownership.
func (o Owner) Active() bool {
	return !o.DeletedAt.Valid
}
