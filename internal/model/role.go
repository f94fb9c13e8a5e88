package model

import "gorm.io/gorm"

// Canonical role names.
const (
	RoleAdmin             = "admin"
	RoleProducer          = "producer"
	RoleSecondaryProducer = "secondary_producer"
	RoleConsumer          = "consumer"
	RoleRecycler          = "recycler"
)

// Role ids as stored in users.role_id.
const (
	RoleIDAdmin = iota + 1
	RoleIDProducer
	RoleIDSecondaryProducer
	RoleIDConsumer
	RoleIDRecycler
)

// Role is a named permission tier. Rows are seeded from the registry.
type Role struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false" json:"id" validate:"min=1,max=5"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name" validate:"required,max=64"`
}

// TableName keeps the singular table name used by the frontend schema.
func (Role) TableName() string {
	return "role"
}

// BeforeSave rejects records that fail their field contracts.
func (r *Role) BeforeSave(tx *gorm.DB) error {
	return Validate(r)
}

// RoleOption is a {label, value} pair for role selectors.
type RoleOption struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type roleEntry struct {
	id    int
	name  string
	label string
}

var registry = []roleEntry{
	{RoleIDAdmin, RoleAdmin, "Administrador"},
	{RoleIDProducer, RoleProducer, "Productor"},
	{RoleIDSecondaryProducer, RoleSecondaryProducer, "Productor secundario"},
	{RoleIDConsumer, RoleConsumer, "Consumidor"},
	{RoleIDRecycler, RoleRecycler, "Reciclador"},
}

// RoleName returns the canonical name for a role id.
func RoleName(id int) (string, bool) {
	for _, e := range registry {
		if e.id == id {
			return e.name, true
		}
	}
	return "", false
}

// RoleID returns the role id for a canonical name.
func RoleID(name string) (int, bool) {
	for _, e := range registry {
		if e.name == name {
			return e.id, true
		}
	}
	return 0, false
}

// RoleLabel returns the Spanish UI label for a role id.
func RoleLabel(id int) (string, bool) {
	for _, e := range registry {
		if e.id == id {
			return e.label, true
		}
	}
	return "", false
}

// RoleOptions returns the role selector options in id order.
func RoleOptions() []RoleOption {
	opts := make([]RoleOption, len(registry))
	for i, e := range registry {
		opts[i] = RoleOption{Label: e.label, Value: e.id}
	}
	return opts
}

// Roles returns the role rows to seed.
func Roles() []Role {
	roles := make([]Role, len(registry))
	for i, e := range registry {
		roles[i] = Role{ID: int64(e.id), Name: e.name}
	}
	return roles
}
