// Package models contains the persisted catalog records and the API error taxonomy.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Software is a catalog entry. Slug is unique and derived from Name.
type Software struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	Name        string                      `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug        string                      `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Version     string                      `gorm:"size:32;not null" json:"version"`
	Platform    datatypes.JSONSlice[string] `gorm:"not null" json:"platform"`
	Price       float64                     `gorm:"not null;default:0" json:"price"`
	ImageURL    string                      `gorm:"not null;default:''" json:"imageUrl"`
	DownloadURL string                      `gorm:"not null;default:''" json:"downloadUrl"`
	WebURL      *string                     `json:"webUrl"`
	RepoURL     *string                     `json:"repoUrl"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Featured    bool                        `gorm:"not null;default:false;index" json:"featured"`
	CategoryID  string                      `gorm:"size:36;not null;index" json:"categoryId"`
	Category    *Category                   `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// TableName pins the table name; the catalog uses "software" as both singular and plural.
func (Software) TableName() string { return "software" }

// BeforeCreate assigns a UUID when the caller did not supply one.
func (s *Software) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsFree reports whether the software has no price.
func (s *Software) IsFree() bool {
	return s.Price == 0
}
