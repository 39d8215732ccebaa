package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups products. Categories nest through ParentID.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	NameKey     string     `gorm:"column:name_key;not null;uniqueIndex:idx_categories_name_key"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex:idx_categories_slug"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	ImageURL    *string    `gorm:"column:image_url"`
	ImageObject *string    `gorm:"column:image_object"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
