package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups software records.
type Category struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
	Slug string `gorm:"size:60;not null;uniqueIndex" json:"slug"`
	// SoftwareCount is not persisted; computed at query time
	SoftwareCount int64     `gorm:"->;-:migration" json:"softwareCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
