// Package seed loads built-in categories and demo catalog data.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"catalog/internal/models"
	"catalog/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed categories.yaml
var categoriesYAML []byte

// BuiltInCategory is one entry of the embedded category list.
type BuiltInCategory struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// BuiltInCategories parses the embedded category list.
func BuiltInCategories() ([]BuiltInCategory, error) {
	var out []BuiltInCategory
	if err := yaml.Unmarshal(categoriesYAML, &out); err != nil {
		return nil, fmt.Errorf("parse categories.yaml: %w", err)
	}
	for i, c := range out {
		if err := validation.ValidateCategoryName(c.Name); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		if err := validation.ValidateCategorySlug(c.Slug); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	return out, nil
}

// Categories upserts the built-in categories by slug. Running it twice
// leaves the table unchanged.
func Categories(ctx context.Context, db *gorm.DB) error {
	items, err := BuiltInCategories()
	if err != nil {
		return err
	}
	for _, item := range items {
		category := models.Category{Name: item.Name, Slug: item.Slug}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&category).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", item.Slug, err)
		}
	}
	return nil
}
